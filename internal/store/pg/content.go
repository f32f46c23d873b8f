package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
)

var _ content.Store = (*Store)(nil)

// listOf runs q and scans every row with scan. The result is never nil.
func listOf[T any](ctx context.Context, db querier, scan func(scanner) (T, error), q string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// courseChild maps a missing parent course on insert.
func courseChild(err error) error {
	if violates(err, pgErrForeignKeyViolation, "") {
		return catalog.ErrNotFound
	}
	return err
}

// Modules

const moduleColumns = `id, course_id, title, description, position, is_published, created_at, updated_at`

func scanModule(row scanner) (content.Module, error) {
	var m content.Module
	err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Position, &m.IsPublished, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Module{}, content.ErrModuleNotFound
	}
	return m, err
}

func (s *Store) CreateModule(ctx context.Context, m content.Module) (content.Module, error) {
	_, err := s.db.ExecContext(ctx, `insert into modules (`+moduleColumns+`) values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.CourseID, m.Title, m.Description, m.Position, m.IsPublished, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return content.Module{}, courseChild(err)
	}
	return m, nil
}

func (s *Store) GetModule(ctx context.Context, id string) (content.Module, error) {
	return scanModule(s.db.QueryRowContext(ctx, `select `+moduleColumns+` from modules where id = $1`, id))
}

func (s *Store) ListModules(ctx context.Context, courseID string) ([]content.Module, error) {
	return listOf(ctx, s.db, scanModule,
		`select `+moduleColumns+` from modules where course_id = $1 order by position, id`, courseID)
}

func (s *Store) UpdateModule(ctx context.Context, m content.Module) (content.Module, error) {
	res, err := s.db.ExecContext(ctx, `
		update modules set title = $2, description = $3, position = $4, is_published = $5, updated_at = $6
		where id = $1
	`, m.ID, m.Title, m.Description, m.Position, m.IsPublished, m.UpdatedAt)
	if err != nil {
		return content.Module{}, err
	}
	return m, affected(res, content.ErrModuleNotFound)
}

func (s *Store) DeleteModule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from modules where id = $1`, id)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return content.ErrModuleInUse
		}
		return err
	}
	return affected(res, content.ErrModuleNotFound)
}

// Lessons

const lessonColumns = `id, module_id, course_id, title, content_type, content_url, document_ref, body,
	duration_minutes, position, is_published, created_at, updated_at`

func scanLesson(row scanner) (content.Lesson, error) {
	var l content.Lesson
	err := row.Scan(&l.ID, &l.ModuleID, &l.CourseID, &l.Title, &l.ContentType, &l.ContentURL, &l.DocumentRef, &l.Body,
		&l.DurationMinutes, &l.Position, &l.IsPublished, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Lesson{}, content.ErrLessonNotFound
	}
	return l, err
}

func (s *Store) CreateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into lessons (`+lessonColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.ModuleID, l.CourseID, l.Title, string(l.ContentType), l.ContentURL, l.DocumentRef, l.Body,
		l.DurationMinutes, l.Position, l.IsPublished, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return content.Lesson{}, content.ErrModuleNotFound
		}
		return content.Lesson{}, err
	}
	return l, nil
}

func (s *Store) GetLesson(ctx context.Context, id string) (content.Lesson, error) {
	return scanLesson(s.db.QueryRowContext(ctx, `select `+lessonColumns+` from lessons where id = $1`, id))
}

func (s *Store) ListLessons(ctx context.Context, moduleID string) ([]content.Lesson, error) {
	return listOf(ctx, s.db, scanLesson,
		`select `+lessonColumns+` from lessons where module_id = $1 order by position, id`, moduleID)
}

func (s *Store) UpdateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	res, err := s.db.ExecContext(ctx, `
		update lessons
		set title = $2, content_type = $3, content_url = $4, document_ref = $5, body = $6,
		    duration_minutes = $7, position = $8, is_published = $9, updated_at = $10
		where id = $1
	`, l.ID, l.Title, string(l.ContentType), l.ContentURL, l.DocumentRef, l.Body,
		l.DurationMinutes, l.Position, l.IsPublished, l.UpdatedAt)
	if err != nil {
		return content.Lesson{}, err
	}
	return l, affected(res, content.ErrLessonNotFound)
}

func (s *Store) DeleteLesson(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from lessons where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, content.ErrLessonNotFound)
}

// Assignments

const assignmentColumns = `id, course_id, title, instructions, due_date, max_score, attachment_url, is_published, created_at, updated_at`

func scanAssignment(row scanner) (content.Assignment, error) {
	var a content.Assignment
	err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.Instructions, &a.DueDate, &a.MaxScore, &a.AttachmentURL,
		&a.IsPublished, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Assignment{}, content.ErrAssignmentNotFound
	}
	return a, err
}

func (s *Store) CreateAssignment(ctx context.Context, a content.Assignment) (content.Assignment, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into assignments (`+assignmentColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.CourseID, a.Title, a.Instructions, a.DueDate, a.MaxScore, a.AttachmentURL,
		a.IsPublished, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return content.Assignment{}, courseChild(err)
	}
	return a, nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (content.Assignment, error) {
	return scanAssignment(s.db.QueryRowContext(ctx, `select `+assignmentColumns+` from assignments where id = $1`, id))
}

func (s *Store) ListAssignments(ctx context.Context, courseID string) ([]content.Assignment, error) {
	return listOf(ctx, s.db, scanAssignment,
		`select `+assignmentColumns+` from assignments where course_id = $1 order by id`, courseID)
}

func (s *Store) UpdateAssignment(ctx context.Context, a content.Assignment) (content.Assignment, error) {
	res, err := s.db.ExecContext(ctx, `
		update assignments
		set title = $2, instructions = $3, due_date = $4, max_score = $5, attachment_url = $6,
		    is_published = $7, updated_at = $8
		where id = $1
	`, a.ID, a.Title, a.Instructions, a.DueDate, a.MaxScore, a.AttachmentURL, a.IsPublished, a.UpdatedAt)
	if err != nil {
		return content.Assignment{}, err
	}
	return a, affected(res, content.ErrAssignmentNotFound)
}

func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from assignments where id = $1`, id)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return content.ErrAssignmentInUse
		}
		return err
	}
	return affected(res, content.ErrAssignmentNotFound)
}

// Quizzes

const quizColumns = `id, course_id, title, description, duration_minutes, passing_score, max_attempts,
	shuffle_questions, is_published, created_at, updated_at`

func scanQuiz(row scanner) (content.Quiz, error) {
	var q content.Quiz
	err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.DurationMinutes, &q.PassingScore, &q.MaxAttempts,
		&q.ShuffleQuestions, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Quiz{}, content.ErrQuizNotFound
	}
	return q, err
}

func (s *Store) CreateQuiz(ctx context.Context, q content.Quiz) (content.Quiz, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into quizzes (`+quizColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, q.ID, q.CourseID, q.Title, q.Description, q.DurationMinutes, q.PassingScore, q.MaxAttempts,
		q.ShuffleQuestions, q.IsPublished, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return content.Quiz{}, courseChild(err)
	}
	return q, nil
}

func (s *Store) GetQuiz(ctx context.Context, id string) (content.Quiz, error) {
	return scanQuiz(s.db.QueryRowContext(ctx, `select `+quizColumns+` from quizzes where id = $1`, id))
}

func (s *Store) ListQuizzes(ctx context.Context, courseID string) ([]content.Quiz, error) {
	return listOf(ctx, s.db, scanQuiz,
		`select `+quizColumns+` from quizzes where course_id = $1 order by id`, courseID)
}

func (s *Store) UpdateQuiz(ctx context.Context, q content.Quiz) (content.Quiz, error) {
	res, err := s.db.ExecContext(ctx, `
		update quizzes
		set title = $2, description = $3, duration_minutes = $4, passing_score = $5, max_attempts = $6,
		    shuffle_questions = $7, is_published = $8, updated_at = $9
		where id = $1
	`, q.ID, q.Title, q.Description, q.DurationMinutes, q.PassingScore, q.MaxAttempts,
		q.ShuffleQuestions, q.IsPublished, q.UpdatedAt)
	if err != nil {
		return content.Quiz{}, err
	}
	return q, affected(res, content.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from quizzes where id = $1`, id)
	if err != nil {
		if violates(err, pgErrForeignKeyViolation, "") {
			return content.ErrQuizInUse
		}
		return err
	}
	return affected(res, content.ErrQuizNotFound)
}

// Forums

const forumColumns = `id, course_id, title, description, category, is_published, created_at, updated_at`

func scanForum(row scanner) (content.Forum, error) {
	var f content.Forum
	err := row.Scan(&f.ID, &f.CourseID, &f.Title, &f.Description, &f.Category, &f.IsPublished, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Forum{}, content.ErrForumNotFound
	}
	return f, err
}

func (s *Store) CreateForum(ctx context.Context, f content.Forum) (content.Forum, error) {
	_, err := s.db.ExecContext(ctx, `insert into forums (`+forumColumns+`) values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.CourseID, f.Title, f.Description, string(f.Category), f.IsPublished, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return content.Forum{}, courseChild(err)
	}
	return f, nil
}

func (s *Store) GetForum(ctx context.Context, id string) (content.Forum, error) {
	return scanForum(s.db.QueryRowContext(ctx, `select `+forumColumns+` from forums where id = $1`, id))
}

func (s *Store) ListForums(ctx context.Context, courseID string) ([]content.Forum, error) {
	return listOf(ctx, s.db, scanForum,
		`select `+forumColumns+` from forums where course_id = $1 order by id`, courseID)
}

func (s *Store) UpdateForum(ctx context.Context, f content.Forum) (content.Forum, error) {
	res, err := s.db.ExecContext(ctx, `
		update forums set title = $2, description = $3, category = $4, is_published = $5, updated_at = $6
		where id = $1
	`, f.ID, f.Title, f.Description, string(f.Category), f.IsPublished, f.UpdatedAt)
	if err != nil {
		return content.Forum{}, err
	}
	return f, affected(res, content.ErrForumNotFound)
}

func (s *Store) DeleteForum(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from forums where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, content.ErrForumNotFound)
}
