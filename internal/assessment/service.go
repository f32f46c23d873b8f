package assessment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/validation"
)

// ContentReader loads the assessed items.
type ContentReader interface {
	GetAssignment(ctx context.Context, id string) (content.Assignment, error)
	GetQuiz(ctx context.Context, id string) (content.Quiz, error)
}

// CourseReader resolves course ownership.
type CourseReader interface {
	GetCourse(ctx context.Context, id string) (catalog.Course, error)
}

// EnrollmentChecker reports live enrollments.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

type Service struct {
	store    Store
	content  ContentReader
	courses  CourseReader
	enrolled EnrollmentChecker
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(store Store, items ContentReader, courses CourseReader, enrolled EnrollmentChecker, rec audit.Recorder) *Service {
	return &Service{store: store, content: items, courses: courses, enrolled: enrolled, audit: rec, now: time.Now}
}

// requireEnrolled checks a student may work on a published item of a course.
func (s *Service) requireEnrolled(ctx context.Context, actor auth.Actor, courseID string) error {
	if err := auth.Authorize(actor, auth.ActionSubmit, auth.Target{}); err != nil {
		return err
	}
	ok, err := s.enrolled.IsEnrolled(ctx, actor.ID, courseID)
	if err != nil {
		return apperr.Infra(err, "check enrollment")
	}
	if !ok {
		return ErrNotEnrolled
	}
	return nil
}

func (s *Service) courseOwner(ctx context.Context, courseID string) (string, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return "", storeErr(err, "get course")
	}
	return c.OwnerID(), nil
}

// Submit creates the student's submission or replaces it while ungraded.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, assignmentID string, in SubmitInput) (Submission, error) {
	a, err := s.content.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, storeErr(err, "get assignment")
	}
	if !a.IsPublished {
		return Submission{}, content.ErrAssignmentNotFound
	}
	if err := s.requireEnrolled(ctx, actor, a.CourseID); err != nil {
		return Submission{}, err
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return Submission{}, err
	}
	now := s.now().UTC()
	existing, err := s.store.FindSubmission(ctx, assignmentID, actor.ID)
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		created, err := s.store.CreateSubmission(ctx, Submission{
			ID:            ids.New(),
			AssignmentID:  assignmentID,
			CourseID:      a.CourseID,
			StudentID:     actor.ID,
			Content:       in.Content,
			AttachmentURL: strings.TrimSpace(in.AttachmentURL),
			Status:        SubmissionSubmitted,
			SubmittedAt:   now,
			UpdatedAt:     now,
		})
		if err != nil {
			return Submission{}, storeErr(err, "create submission")
		}
		s.audit.Record(ctx, audit.ActionCreate, audit.TableSubmissions, created.ID, nil, created)
		return created, nil
	case err != nil:
		return Submission{}, apperr.Infra(err, "find submission")
	}
	if existing.Status == SubmissionGraded {
		return Submission{}, ErrAlreadyGraded
	}
	next := existing
	next.Content = in.Content
	next.AttachmentURL = strings.TrimSpace(in.AttachmentURL)
	next.SubmittedAt = now
	next.UpdatedAt = now
	updated, err := s.store.UpdateSubmission(ctx, next)
	if err != nil {
		return Submission{}, storeErr(err, "update submission")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableSubmissions, updated.ID, existing, updated)
	return updated, nil
}

// Grade scores a submission. Only the course owner or an admin may grade.
func (s *Service) Grade(ctx context.Context, actor auth.Actor, submissionID string, in GradeInput) (Submission, error) {
	if err := validation.Struct(in); err != nil {
		return Submission{}, err
	}
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, storeErr(err, "get submission")
	}
	owner, err := s.courseOwner(ctx, sub.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if err := auth.Authorize(actor, auth.ActionSubmissionGrade, auth.OwnedBy(owner)); err != nil {
		return Submission{}, err
	}
	a, err := s.content.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, storeErr(err, "get assignment")
	}
	if *in.Score > a.MaxScore {
		return Submission{}, apperr.Field("score", "score must be between 0 and the assignment max_score")
	}
	now := s.now().UTC()
	next := sub
	score := *in.Score
	grader := actor.ID
	next.Score = &score
	next.Feedback = strings.TrimSpace(in.Feedback)
	next.Status = SubmissionGraded
	next.GradedBy = &grader
	next.GradedAt = &now
	next.UpdatedAt = now
	updated, err := s.store.UpdateSubmission(ctx, next)
	if err != nil {
		return Submission{}, storeErr(err, "grade submission")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableSubmissions, updated.ID, sub, updated)
	return updated, nil
}

// ListSubmissions scopes by role like enrollments: own, owned courses, or all.
func (s *Service) ListSubmissions(ctx context.Context, actor auth.Actor, f SubmissionFilter, p pagination.Page) (pagination.Result[Submission], error) {
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor():
		f.InstructorID = actor.ID
	case actor.IsStudent():
		f.StudentID = actor.ID
	default:
		return pagination.Result[Submission]{}, auth.ErrForbidden
	}
	p = p.Normalize()
	items, total, err := s.store.ListSubmissions(ctx, f, p)
	if err != nil {
		return pagination.Result[Submission]{}, apperr.Infra(err, "list submissions")
	}
	return pagination.NewResult(items, total, p), nil
}

// Attempt records a finished quiz attempt for an enrolled student.
func (s *Service) Attempt(ctx context.Context, actor auth.Actor, quizID string, in AttemptInput) (QuizAttempt, error) {
	q, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizAttempt{}, storeErr(err, "get quiz")
	}
	if !q.IsPublished {
		return QuizAttempt{}, content.ErrQuizNotFound
	}
	if err := s.requireEnrolled(ctx, actor, q.CourseID); err != nil {
		return QuizAttempt{}, err
	}
	if err := validation.Struct(in); err != nil {
		return QuizAttempt{}, err
	}
	a, err := s.store.CreateQuizAttempt(ctx, QuizAttempt{
		ID:          ids.New(),
		QuizID:      quizID,
		CourseID:    q.CourseID,
		StudentID:   actor.ID,
		Score:       *in.Score,
		Passed:      *in.Score >= q.PassingScore,
		SubmittedAt: s.now().UTC(),
	}, q.MaxAttempts)
	if err != nil {
		return QuizAttempt{}, storeErr(err, "create quiz attempt")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableQuizAttempts, a.ID, nil, a)
	return a, nil
}

// ListAttempts returns a quiz's attempts: the student's own, or all of them
// for the course owner and admins.
func (s *Service) ListAttempts(ctx context.Context, actor auth.Actor, quizID string, p pagination.Page) (pagination.Result[QuizAttempt], error) {
	q, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return pagination.Result[QuizAttempt]{}, storeErr(err, "get quiz")
	}
	f := AttemptFilter{QuizID: quizID}
	if actor.IsStudent() {
		f.StudentID = actor.ID
	} else {
		owner, err := s.courseOwner(ctx, q.CourseID)
		if err != nil {
			return pagination.Result[QuizAttempt]{}, err
		}
		if err := auth.Authorize(actor, auth.ActionCourseRosterRead, auth.OwnedBy(owner)); err != nil {
			return pagination.Result[QuizAttempt]{}, err
		}
	}
	p = p.Normalize()
	items, total, err := s.store.ListQuizAttempts(ctx, f, p)
	if err != nil {
		return pagination.Result[QuizAttempt]{}, apperr.Infra(err, "list quiz attempts")
	}
	return pagination.NewResult(items, total, p), nil
}

func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
