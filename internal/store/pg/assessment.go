package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/assessment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ assessment.Store = (*Store)(nil)

const submissionColumns = `s.id, s.assignment_id, s.course_id, s.student_id, s.content, s.attachment_url, s.status,
	s.score, s.feedback, s.graded_by, s.submitted_at, s.graded_at, s.updated_at`

func scanSubmission(row scanner) (assessment.Submission, error) {
	var sub assessment.Submission
	err := row.Scan(&sub.ID, &sub.AssignmentID, &sub.CourseID, &sub.StudentID, &sub.Content, &sub.AttachmentURL, &sub.Status,
		&sub.Score, &sub.Feedback, &sub.GradedBy, &sub.SubmittedAt, &sub.GradedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	return sub, err
}

func (s *Store) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into submissions (id, assignment_id, course_id, student_id, content, attachment_url, status,
		                         score, feedback, graded_by, submitted_at, graded_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, sub.ID, sub.AssignmentID, sub.CourseID, sub.StudentID, sub.Content, sub.AttachmentURL, string(sub.Status),
		sub.Score, sub.Feedback, sub.GradedBy, sub.SubmittedAt, sub.GradedAt, sub.UpdatedAt)
	switch {
	case violates(err, pgErrUniqueViolation, ""):
		return assessment.Submission{}, assessment.ErrAlreadySubmitted
	case violates(err, pgErrForeignKeyViolation, "submissions_assignment_id_fkey"):
		return assessment.Submission{}, content.ErrAssignmentNotFound
	case err != nil:
		return assessment.Submission{}, err
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx, `select `+submissionColumns+` from submissions s where s.id = $1`, id))
}

func (s *Store) FindSubmission(ctx context.Context, assignmentID, studentID string) (assessment.Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx,
		`select `+submissionColumns+` from submissions s where s.assignment_id = $1 and s.student_id = $2`,
		assignmentID, studentID))
}

func (s *Store) UpdateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	res, err := s.db.ExecContext(ctx, `
		update submissions
		set content = $2, attachment_url = $3, status = $4, score = $5, feedback = $6, graded_by = $7,
		    submitted_at = $8, graded_at = $9, updated_at = $10
		where id = $1
	`, sub.ID, sub.Content, sub.AttachmentURL, string(sub.Status), sub.Score, sub.Feedback, sub.GradedBy,
		sub.SubmittedAt, sub.GradedAt, sub.UpdatedAt)
	if err != nil {
		return assessment.Submission{}, err
	}
	return sub, affected(res, assessment.ErrSubmissionNotFound)
}

func (s *Store) ListSubmissions(ctx context.Context, f assessment.SubmissionFilter, p pagination.Page) ([]assessment.Submission, int, error) {
	var w where
	if f.AssignmentID != "" {
		w.add("s.assignment_id = $%d", f.AssignmentID)
	}
	if f.CourseID != "" {
		w.add("s.course_id = $%d", f.CourseID)
	}
	if f.StudentID != "" {
		w.add("s.student_id = $%d", f.StudentID)
	}
	if f.Status != "" {
		w.add("s.status = $%d", string(f.Status))
	}
	if f.InstructorID != "" {
		w.add("c.instructor_id = $%d", f.InstructorID)
	}
	const from = "submissions s left join courses c on c.id = s.course_id"
	total, err := s.count(ctx, from, &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	rows, err := s.db.QueryContext(ctx, `select `+submissionColumns+` from `+from+w.String()+` order by s.id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []assessment.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sub)
	}
	return out, total, rows.Err()
}

// CreateQuizAttempt serializes attempts of one student on one quiz with a
// transaction-scoped advisory lock, then counts and inserts.
func (s *Store) CreateQuizAttempt(ctx context.Context, a assessment.QuizAttempt, maxAttempts int) (assessment.QuizAttempt, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `select exists (select 1 from quizzes where id = $1)`, a.QuizID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return content.ErrQuizNotFound
		}
		if _, err := tx.ExecContext(ctx, `select pg_advisory_xact_lock(hashtext($1))`, a.QuizID+":"+a.StudentID); err != nil {
			return err
		}
		var used int
		if err := tx.QueryRowContext(ctx,
			`select count(*) from quiz_attempts where quiz_id = $1 and student_id = $2`, a.QuizID, a.StudentID).Scan(&used); err != nil {
			return err
		}
		if maxAttempts > 0 && used >= maxAttempts {
			return assessment.ErrAttemptsExhausted
		}
		a.AttemptNumber = used + 1
		_, err := tx.ExecContext(ctx, `
			insert into quiz_attempts (id, quiz_id, course_id, student_id, attempt_number, score, passed, submitted_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, a.QuizID, a.CourseID, a.StudentID, a.AttemptNumber, a.Score, a.Passed, a.SubmittedAt)
		return err
	})
	if err != nil {
		return assessment.QuizAttempt{}, err
	}
	return a, nil
}

func (s *Store) ListQuizAttempts(ctx context.Context, f assessment.AttemptFilter, p pagination.Page) ([]assessment.QuizAttempt, int, error) {
	var w where
	if f.QuizID != "" {
		w.add("quiz_id = $%d", f.QuizID)
	}
	if f.StudentID != "" {
		w.add("student_id = $%d", f.StudentID)
	}
	total, err := s.count(ctx, "quiz_attempts", &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	out, err := listOf(ctx, s.db, func(row scanner) (assessment.QuizAttempt, error) {
		var a assessment.QuizAttempt
		err := row.Scan(&a.ID, &a.QuizID, &a.CourseID, &a.StudentID, &a.AttemptNumber, &a.Score, &a.Passed, &a.SubmittedAt)
		return a, err
	}, `select id, quiz_id, course_id, student_id, attempt_number, score, passed, submitted_at from quiz_attempts`+
		w.String()+` order by id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
