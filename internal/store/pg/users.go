package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ users.Store = (*Store)(nil)

const userColumns = `id, email, full_name, institution, role, is_active, password_hash, last_login_at, created_at, updated_at`

func scanUser(row scanner) (users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Institution, &u.Role, &u.IsActive,
		&u.PasswordHash, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u users.User) (users.User, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into users (`+userColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Email, u.FullName, u.Institution, string(u.Role), u.IsActive,
		u.PasswordHash, u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if violates(err, pgErrUniqueViolation, "") {
			return users.User{}, users.ErrEmailTaken
		}
		return users.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (users.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, email))
}

func (s *Store) ListUsers(ctx context.Context, f users.Filter, p pagination.Page) ([]users.User, int, error) {
	var w where
	if f.Role != "" {
		w.add("role = $%d", string(f.Role))
	}
	if f.Active != nil {
		w.add("is_active = $%d", *f.Active)
	}
	if f.Search != "" {
		w.add("(full_name ilike $%d or email ilike $%d or institution ilike $%d)", likePattern(f.Search))
	}
	total, err := s.count(ctx, "users", &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users`+w.String()+
		` order by created_at desc, id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u users.User) (users.User, error) {
	res, err := s.db.ExecContext(ctx, `
		update users
		set email = $2, full_name = $3, institution = $4, role = $5, is_active = $6,
		    password_hash = $7, updated_at = $8
		where id = $1
	`, u.ID, u.Email, u.FullName, u.Institution, string(u.Role), u.IsActive, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		if violates(err, pgErrUniqueViolation, "") {
			return users.User{}, users.ErrEmailTaken
		}
		return users.User{}, err
	}
	if err := affected(res, users.ErrNotFound); err != nil {
		return users.User{}, err
	}
	return u, nil
}

// DeleteUser relies on the schema: per-user rows cascade and owned courses
// are unassigned.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return users.ErrUserInUse
		}
		return err
	}
	return affected(res, users.ErrNotFound)
}

func (s *Store) TouchUserLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set last_login_at = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	return affected(res, users.ErrNotFound)
}
