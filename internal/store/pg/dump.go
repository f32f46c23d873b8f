package pg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// dumpTables lists every table parents first, so a restore satisfies
// foreign keys while copying.
var dumpTables = []string{
	"users",
	"courses",
	"modules",
	"lessons",
	"assignments",
	"quizzes",
	"forums",
	"enrollments",
	"certificates",
	"submissions",
	"quiz_attempts",
	"payments",
	"system_settings",
	"audit_logs",
}

// copyFunc streams the output of a copy ... to stdout statement into w.
type copyFunc func(ctx context.Context, w io.Writer, statement string) error

// Dump writes a restorable SQL script of every table. All tables are read
// from one repeatable-read snapshot with copy ... to stdout.
func (s *Store) Dump(ctx context.Context, w io.Writer) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("dump: unsupported driver connection %T", driverConn)
		}
		tx, err := sc.Conn().BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		pc := tx.Conn().PgConn()
		err = writeDump(ctx, w, time.Now().UTC(), func(ctx context.Context, w io.Writer, statement string) error {
			_, err := pc.CopyTo(ctx, w, statement)
			return err
		})
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// writeDump renders the script: one transaction that empties every table and
// reloads it from inline copy data.
func writeDump(ctx context.Context, w io.Writer, takenAt time.Time, copyTo copyFunc) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- SkillArc database dump\n-- taken at %s\n\nbegin;\n\n", takenAt.Format(time.RFC3339))
	fmt.Fprintf(bw, "truncate table %s cascade;\n\n", strings.Join(dumpTables, ", "))
	for _, table := range dumpTables {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(bw, "copy %s from stdin;\n", table)
		if err := copyTo(ctx, bw, fmt.Sprintf("copy %s to stdout", table)); err != nil {
			return fmt.Errorf("dump %s: %w", table, err)
		}
		bw.WriteString("\\.\n\n")
	}
	bw.WriteString("commit;\n")
	return bw.Flush()
}
