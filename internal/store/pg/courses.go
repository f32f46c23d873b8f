package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ catalog.Store = (*Store)(nil)

// courseSelect joins the instructor name and the number of live enrollments.
const courseSelect = `
	select c.id, c.title, c.description, c.category, c.level, c.price_cents, c.status,
	       c.instructor_id, coalesce(u.full_name, ''),
	       (select count(*) from enrollments e where e.course_id = c.id and e.status <> 'cancelled') as enrolled_count,
	       c.created_at, c.updated_at
	from courses c
	left join users u on u.id = c.instructor_id`

func scanCourse(row scanner) (catalog.Course, error) {
	var c catalog.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Level, &c.Price, &c.Status,
		&c.InstructorID, &c.InstructorName, &c.EnrolledCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Course{}, catalog.ErrNotFound
	}
	return c, err
}

func (s *Store) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into courses (id, title, description, category, level, price_cents, status, instructor_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Title, c.Description, c.Category, string(c.Level), int64(c.Price), string(c.Status),
		c.InstructorID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "courses_instructor_id_fkey") {
			return catalog.Course{}, catalog.ErrNotInstructor
		}
		return catalog.Course{}, err
	}
	return s.GetCourse(ctx, c.ID)
}

// GetCourse also satisfies the CourseReader of the dependent services.
func (s *Store) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	return scanCourse(s.db.QueryRowContext(ctx, courseSelect+` where c.id = $1`, id))
}

func courseFilter(f catalog.Filter) *where {
	w := &where{}
	if f.PublicOnly {
		w.raw("c.status = 'published'")
	}
	if f.VisibleTo != "" {
		w.add("(c.status = 'published' or c.instructor_id = $%d)", f.VisibleTo)
	}
	if f.Status != "" {
		w.add("c.status = $%d", string(f.Status))
	}
	if f.Category != "" {
		w.add("lower(c.category) = lower($%d)", f.Category)
	}
	if f.Level != "" {
		w.add("c.level = $%d", string(f.Level))
	}
	if f.InstructorID != "" {
		w.add("c.instructor_id = $%d", f.InstructorID)
	}
	if f.Search != "" {
		w.add("(c.title ilike $%d or c.description ilike $%d or u.full_name ilike $%d)", likePattern(f.Search))
	}
	return w
}

func courseOrder(sort catalog.Sort) string {
	switch sort {
	case catalog.SortEnrolled:
		return " order by enrolled_count desc, c.created_at desc, c.id desc"
	case catalog.SortPriceAsc:
		return " order by c.price_cents asc, c.created_at desc, c.id desc"
	case catalog.SortPriceDesc:
		return " order by c.price_cents desc, c.created_at desc, c.id desc"
	}
	return " order by c.created_at desc, c.id desc"
}

func (s *Store) ListCourses(ctx context.Context, f catalog.Filter, p pagination.Page) ([]catalog.Course, int, error) {
	w := courseFilter(f)
	total, err := s.count(ctx, "courses c left join users u on u.id = c.instructor_id", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	rows, err := s.db.QueryContext(ctx, courseSelect+w.String()+courseOrder(f.Sort)+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []catalog.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	res, err := s.db.ExecContext(ctx, `
		update courses
		set title = $2, description = $3, category = $4, level = $5, price_cents = $6,
		    status = $7, instructor_id = $8, updated_at = $9
		where id = $1
	`, c.ID, c.Title, c.Description, c.Category, string(c.Level), int64(c.Price), string(c.Status),
		c.InstructorID, c.UpdatedAt)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "courses_instructor_id_fkey") {
			return catalog.Course{}, catalog.ErrNotInstructor
		}
		return catalog.Course{}, err
	}
	if err := affected(res, catalog.ErrNotFound); err != nil {
		return catalog.Course{}, err
	}
	return s.GetCourse(ctx, c.ID)
}

// DeleteCourse fails with ErrInUse while content, enrollments or payments
// reference the course (on delete restrict).
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from courses where id = $1`, id)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return catalog.ErrInUse
		}
		return err
	}
	return affected(res, catalog.ErrNotFound)
}
