// Package pg implements every store interface on PostgreSQL through
// database/sql and the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the database is reachable. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// inTx runs fn in a transaction, committing when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// violates reports whether err is the given constraint violation. An empty
// constraint matches any name.
func violates(err error, code, constraint string) bool {
	pgErr, ok := maybePgError(err)
	if !ok || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// affected maps a zero row count to notFound.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// where accumulates and-joined conditions with positional arguments.
type where struct {
	clauses []string
	args    []any
}

// add appends a condition. Each %d in cond is replaced by the argument's
// placeholder number.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	n := len(w.args)
	w.clauses = append(w.clauses, strings.ReplaceAll(cond, "%d", fmt.Sprint(n)))
}

// addPair appends a condition over two arguments, numbered in order.
func (w *where) addPair(cond string, a, b any) {
	n := len(w.args)
	w.args = append(w.args, a, b)
	w.clauses = append(w.clauses, fmt.Sprintf(cond, n+1, n+2))
}

// raw appends a condition without arguments.
func (w *where) raw(cond string) { w.clauses = append(w.clauses, cond) }

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " where " + strings.Join(w.clauses, " and ")
}

// page returns the limit/offset clause and the arguments including it.
func (w *where) page(p pagination.Page) (string, []any) {
	p = p.Normalize()
	n := len(w.args)
	args := append(append([]any{}, w.args...), p.Limit, p.Offset)
	return fmt.Sprintf(" limit $%d offset $%d", n+1, n+2), args
}

// likePattern escapes s for use in an ilike pattern matching substrings.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func (s *Store) count(ctx context.Context, from string, w *where) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(*) from "+from+w.String(), w.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
