package enrollment

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// CourseReader loads courses being enrolled in.
type CourseReader interface {
	GetCourse(ctx context.Context, id string) (catalog.Course, error)
}

// PaymentChecker reports whether a student has paid for a course.
type PaymentChecker interface {
	HasPaidPayment(ctx context.Context, studentID, courseID string) (bool, error)
}

// Service implements the enrollment ledger.
type Service struct {
	store    Store
	courses  CourseReader
	payments PaymentChecker
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(store Store, courses CourseReader, payments PaymentChecker, rec audit.Recorder) *Service {
	return &Service{store: store, courses: courses, payments: payments, audit: rec, now: time.Now}
}

func outcome(label string) { obs.EnrollmentOutcomes.WithLabelValues(label).Inc() }

// Enroll registers the acting student in a published course. Uniqueness of
// (student, course) is left to the store, so concurrent attempts cannot
// produce two live rows.
func (s *Service) Enroll(ctx context.Context, actor auth.Actor, courseID string) (Enrollment, error) {
	if err := auth.Authorize(actor, auth.ActionEnroll, auth.Target{}); err != nil {
		return Enrollment{}, err
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return Enrollment{}, apperr.Field("course_id", "course_id is required")
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			outcome("unavailable")
			return Enrollment{}, ErrCourseNotAvailable
		}
		return Enrollment{}, apperr.Infra(err, "get course")
	}
	if course.Status != catalog.StatusPublished {
		outcome("unavailable")
		return Enrollment{}, ErrCourseNotAvailable
	}
	if !course.IsFree() {
		paid, err := s.payments.HasPaidPayment(ctx, actor.ID, courseID)
		if err != nil {
			return Enrollment{}, apperr.Infra(err, "check payment")
		}
		if !paid {
			outcome("payment_required")
			return Enrollment{}, ErrPaymentRequired
		}
	}
	now := s.now().UTC()
	e, reactivated, err := s.store.EnrollStudent(ctx, Enrollment{
		ID:         ids.New(),
		StudentID:  actor.ID,
		CourseID:   courseID,
		Status:     StatusActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			outcome("duplicate")
			return Enrollment{}, err
		}
		return Enrollment{}, storeErr(err, "enroll")
	}
	e.CourseTitle = course.Title
	if reactivated {
		outcome("reactivated")
		s.audit.Record(ctx, audit.ActionUpdate, audit.TableEnrollments, e.ID,
			map[string]any{"status": StatusCancelled}, e)
	} else {
		outcome("created")
		s.audit.Record(ctx, audit.ActionCreate, audit.TableEnrollments, e.ID, nil, e)
	}
	return e, nil
}

// Get returns an enrollment to its student, the course instructor or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Enrollment, error) {
	e, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, storeErr(err, "get enrollment")
	}
	if auth.Can(actor, auth.ActionReadOwn, auth.OwnedBy(e.StudentID)) {
		return e, nil
	}
	if err := s.authorizeCourse(ctx, actor, auth.ActionCourseRosterRead, e.CourseID); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

// Check reports whether the acting student is enrolled in a course.
// Cancelled enrollments do not count.
func (s *Service) Check(ctx context.Context, actor auth.Actor, courseID string) (CheckResult, error) {
	e, err := s.store.FindEnrollment(ctx, actor.ID, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CheckResult{}, nil
		}
		return CheckResult{}, apperr.Infra(err, "find enrollment")
	}
	if !e.Live() {
		return CheckResult{}, nil
	}
	return CheckResult{IsEnrolled: true, Enrollment: &e}, nil
}

// CheckResult is the answer to Check.
type CheckResult struct {
	IsEnrolled bool        `json:"is_enrolled"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`
}

// List scopes the listing by role: students see their own, instructors the
// rosters of courses they own, admins everything.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, p pagination.Page) (pagination.Result[Enrollment], error) {
	if f.Status != "" && !f.Status.Valid() {
		return pagination.Result[Enrollment]{}, apperr.Field("status", "status must be one of active, completed, cancelled")
	}
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor():
		f.InstructorID = actor.ID
	case actor.IsStudent():
		f.StudentID = actor.ID
	default:
		return pagination.Result[Enrollment]{}, auth.ErrForbidden
	}
	p = p.Normalize()
	items, total, err := s.store.ListEnrollments(ctx, f, p)
	if err != nil {
		return pagination.Result[Enrollment]{}, apperr.Infra(err, "list enrollments")
	}
	return pagination.NewResult(items, total, p), nil
}

// RecordProgress reports progress for an enrollment. See advance for the rules.
func (s *Service) RecordProgress(ctx context.Context, actor auth.Actor, id string, percent int) (Enrollment, error) {
	current, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, storeErr(err, "get enrollment")
	}
	if err := auth.Authorize(actor, auth.ActionEnrollmentProgress, auth.OwnedBy(current.StudentID)); err != nil {
		return Enrollment{}, err
	}
	return s.mutate(ctx, id, advance(s.now().UTC(), percent))
}

// Complete marks an enrollment finished, as reaching 100% would.
func (s *Service) Complete(ctx context.Context, actor auth.Actor, id string) (Enrollment, error) {
	current, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, storeErr(err, "get enrollment")
	}
	if err := s.authorizeCourse(ctx, actor, auth.ActionEnrollmentComplete, current.CourseID); err != nil {
		return Enrollment{}, err
	}
	return s.mutate(ctx, id, advance(s.now().UTC(), 100))
}

// Reset returns an enrollment to 0% and active (admin only).
func (s *Service) Reset(ctx context.Context, actor auth.Actor, id string) (Enrollment, error) {
	if err := auth.Authorize(actor, auth.ActionEnrollmentReset, auth.Target{}); err != nil {
		return Enrollment{}, err
	}
	return s.mutate(ctx, id, reset(s.now().UTC()))
}

// Cancel withdraws an active enrollment.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id string) (Enrollment, error) {
	current, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, storeErr(err, "get enrollment")
	}
	if err := auth.Authorize(actor, auth.ActionEnrollmentCancel, auth.OwnedBy(current.StudentID)); err != nil {
		return Enrollment{}, err
	}
	return s.mutate(ctx, id, cancel(s.now().UTC()))
}

func (s *Service) mutate(ctx context.Context, id string, fn Mutation) (Enrollment, error) {
	before, after, changed, err := s.store.MutateEnrollment(ctx, id, fn)
	if err != nil {
		return Enrollment{}, storeErr(err, "update enrollment")
	}
	if !changed {
		return after, nil
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableEnrollments, id, before, after)
	if after.Status == StatusCompleted && before.Status != StatusCompleted {
		s.issueCertificate(ctx, after)
	}
	return after, nil
}

// issueCertificate is best effort: the completion stands even if issuing fails.
func (s *Service) issueCertificate(ctx context.Context, e Enrollment) {
	issuedAt := s.now().UTC()
	if e.CompletedAt != nil {
		issuedAt = *e.CompletedAt
	}
	cert, err := s.store.IssueCertificate(ctx, Certificate{
		ID:           ids.New(),
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		CourseID:     e.CourseID,
		Serial:       "CERT-" + ids.New(),
		IssuedAt:     issuedAt,
	})
	if err != nil {
		if !errors.Is(err, ErrCertificateExists) {
			obs.Logger().Error("issue certificate failed", zap.Error(err), zap.String("enrollment_id", e.ID))
		}
		return
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableCertificates, cert.ID, nil, cert)
}

// Certificates lists the certificates of the acting student, or of studentID
// for admins.
func (s *Service) Certificates(ctx context.Context, actor auth.Actor, studentID string) ([]Certificate, error) {
	if studentID == "" {
		studentID = actor.ID
	}
	if err := auth.Authorize(actor, auth.ActionReadOwn, auth.OwnedBy(studentID)); err != nil {
		return nil, err
	}
	certs, err := s.store.ListCertificates(ctx, studentID)
	if err != nil {
		return nil, apperr.Infra(err, "list certificates")
	}
	if certs == nil {
		certs = []Certificate{}
	}
	return certs, nil
}

func (s *Service) authorizeCourse(ctx context.Context, actor auth.Actor, action auth.Action, courseID string) error {
	if actor.IsAdmin() {
		return nil
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return storeErr(err, "get course")
	}
	return auth.Authorize(actor, action, auth.OwnedBy(course.OwnerID()))
}

func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
