package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ enrollment.Store = (*Store)(nil)

const enrollmentSelect = `
	select e.id, e.student_id, e.course_id, coalesce(c.title, ''), coalesce(u.full_name, ''),
	       e.status, e.progress_percent, e.enrolled_at, e.completed_at, e.cancelled_at, e.updated_at
	from enrollments e
	left join courses c on c.id = e.course_id
	left join users u on u.id = e.student_id`

func scanEnrollment(row scanner) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.CourseTitle, &e.StudentName,
		&e.Status, &e.ProgressPercent, &e.EnrolledAt, &e.CompletedAt, &e.CancelledAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, err
}

// EnrollStudent inserts the row or reactivates a cancelled one in the same
// statement. A live row makes the conditional update skip, so nothing is
// returned and the call fails with ErrAlreadyEnrolled.
func (s *Store) EnrollStudent(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		insert into enrollments (id, student_id, course_id, status, progress_percent, enrolled_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (student_id, course_id) do update
		set status = 'active', cancelled_at = null, updated_at = excluded.updated_at
		where enrollments.status = 'cancelled'
		returning id
	`, e.ID, e.StudentID, e.CourseID, string(e.Status), e.ProgressPercent, e.EnrolledAt, e.UpdatedAt).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return enrollment.Enrollment{}, false, enrollment.ErrAlreadyEnrolled
	case violates(err, pgErrForeignKeyViolation, "enrollments_student_id_fkey"):
		return enrollment.Enrollment{}, false, users.ErrNotFound
	case violates(err, pgErrForeignKeyViolation, "enrollments_course_id_fkey"):
		return enrollment.Enrollment{}, false, catalog.ErrNotFound
	case err != nil:
		return enrollment.Enrollment{}, false, err
	}
	out, err := s.GetEnrollment(ctx, id)
	if err != nil {
		return enrollment.Enrollment{}, false, err
	}
	return out, id != e.ID, nil
}

func (s *Store) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return scanEnrollment(s.db.QueryRowContext(ctx, enrollmentSelect+` where e.id = $1`, id))
}

func (s *Store) FindEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	return scanEnrollment(s.db.QueryRowContext(ctx,
		enrollmentSelect+` where e.student_id = $1 and e.course_id = $2`, studentID, courseID))
}

func (s *Store) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		select exists (
			select 1 from enrollments
			where student_id = $1 and course_id = $2 and status in ('active', 'completed')
		)
	`, studentID, courseID).Scan(&ok)
	return ok, err
}

func (s *Store) ListEnrollments(ctx context.Context, f enrollment.Filter, p pagination.Page) ([]enrollment.Enrollment, int, error) {
	var w where
	if f.StudentID != "" {
		w.add("e.student_id = $%d", f.StudentID)
	}
	if f.CourseID != "" {
		w.add("e.course_id = $%d", f.CourseID)
	}
	if f.Status != "" {
		w.add("e.status = $%d", string(f.Status))
	}
	if f.InstructorID != "" {
		w.add("c.instructor_id = $%d", f.InstructorID)
	}
	total, err := s.count(ctx, "enrollments e left join courses c on c.id = e.course_id", &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	rows, err := s.db.QueryContext(ctx, enrollmentSelect+w.String()+` order by e.enrolled_at desc, e.id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// MutateEnrollment locks the row with select ... for update, lets fn decide
// the next state and writes it in the same transaction.
func (s *Store) MutateEnrollment(ctx context.Context, id string, fn enrollment.Mutation) (enrollment.Enrollment, enrollment.Enrollment, bool, error) {
	var (
		before, after enrollment.Enrollment
		changed       bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = scanEnrollment(tx.QueryRowContext(ctx, enrollmentSelect+` where e.id = $1 for update of e`, id))
		if err != nil {
			return err
		}
		next, ok, err := fn(before)
		if err != nil {
			return err
		}
		if !ok {
			after = before
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			update enrollments
			set status = $2, progress_percent = $3, completed_at = $4, cancelled_at = $5, updated_at = $6
			where id = $1
		`, id, string(next.Status), next.ProgressPercent, next.CompletedAt, next.CancelledAt, next.UpdatedAt); err != nil {
			return err
		}
		after, err = scanEnrollment(tx.QueryRowContext(ctx, enrollmentSelect+` where e.id = $1`, id))
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return enrollment.Enrollment{}, enrollment.Enrollment{}, false, err
	}
	return before, after, changed, nil
}

func (s *Store) IssueCertificate(ctx context.Context, c enrollment.Certificate) (enrollment.Certificate, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into certificates (id, enrollment_id, student_id, course_id, serial, issued_at)
		values ($1, $2, $3, $4, $5, $6)
		returning coalesce((select title from courses where id = $4), '')
	`, c.ID, c.EnrollmentID, c.StudentID, c.CourseID, c.Serial, c.IssuedAt).Scan(&c.CourseTitle)
	switch {
	case violates(err, pgErrUniqueViolation, "certificates_enrollment_id_key"):
		return enrollment.Certificate{}, enrollment.ErrCertificateExists
	case violates(err, pgErrForeignKeyViolation, ""):
		return enrollment.Certificate{}, enrollment.ErrNotFound
	case err != nil:
		return enrollment.Certificate{}, err
	}
	return c, nil
}

func (s *Store) ListCertificates(ctx context.Context, studentID string) ([]enrollment.Certificate, error) {
	return listOf(ctx, s.db, func(row scanner) (enrollment.Certificate, error) {
		var c enrollment.Certificate
		err := row.Scan(&c.ID, &c.EnrollmentID, &c.StudentID, &c.CourseID, &c.CourseTitle, &c.Serial, &c.IssuedAt)
		return c, err
	}, `
		select t.id, t.enrollment_id, t.student_id, t.course_id, coalesce(c.title, ''), t.serial, t.issued_at
		from certificates t
		left join courses c on c.id = t.course_id
		where t.student_id = $1
		order by t.issued_at desc, t.id desc
	`, studentID)
}
