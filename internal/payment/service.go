package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// CourseReader loads the course being paid for.
type CourseReader interface {
	GetCourse(ctx context.Context, id string) (catalog.Course, error)
}

type Service struct {
	store   Store
	courses CourseReader
	audit   audit.Recorder
	now     func() time.Time
}

func NewService(store Store, courses CourseReader, rec audit.Recorder) *Service {
	return &Service{store: store, courses: courses, audit: rec, now: time.Now}
}

// Create opens a pending payment for the course price.
func (s *Service) Create(ctx context.Context, actor auth.Actor, courseID string) (Payment, error) {
	if err := auth.Authorize(actor, auth.ActionPaymentCreate, auth.Target{}); err != nil {
		return Payment{}, err
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return Payment{}, apperr.Field("course_id", "course_id is required")
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Payment{}, ErrNotPayable
		}
		return Payment{}, apperr.Infra(err, "get course")
	}
	if course.Status != catalog.StatusPublished {
		return Payment{}, ErrNotPayable
	}
	if course.IsFree() {
		return Payment{}, ErrFreeCourse
	}
	paid, err := s.store.HasPaidPayment(ctx, actor.ID, courseID)
	if err != nil {
		return Payment{}, apperr.Infra(err, "check payment")
	}
	if paid {
		return Payment{}, ErrAlreadyPaid
	}
	now := s.now().UTC()
	p, err := s.store.CreatePayment(ctx, Payment{
		ID:        ids.New(),
		StudentID: actor.ID,
		CourseID:  courseID,
		Amount:    course.Price,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Payment{}, storeErr(err, "create payment")
	}
	p.CourseTitle = course.Title
	s.audit.Record(ctx, audit.ActionCreate, audit.TablePayments, p.ID, nil, p)
	return p, nil
}

// Get returns a payment to its student or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, storeErr(err, "get payment")
	}
	if err := auth.Authorize(actor, auth.ActionReadOwn, auth.OwnedBy(p.StudentID)); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// List returns the actor's payments, or any payments for admins.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, p pagination.Page) (pagination.Result[Payment], error) {
	if f.Status != "" && !f.Status.Valid() {
		return pagination.Result[Payment]{}, apperr.Field("status", "status must be one of pending, paid, failed")
	}
	if !auth.Can(actor, auth.ActionPaymentReadAll, auth.Target{}) {
		if actor.IsSystem() {
			return pagination.Result[Payment]{}, auth.ErrForbidden
		}
		f.StudentID = actor.ID
	}
	p = p.Normalize()
	items, total, err := s.store.ListPayments(ctx, f, p)
	if err != nil {
		return pagination.Result[Payment]{}, apperr.Infra(err, "list payments")
	}
	return pagination.NewResult(items, total, p), nil
}

// MarkPaid settles a pending payment as paid.
func (s *Service) MarkPaid(ctx context.Context, actor auth.Actor, id, reference string) (Payment, error) {
	return s.settle(ctx, actor, id, StatusPaid, reference)
}

// MarkFailed settles a pending payment as failed.
func (s *Service) MarkFailed(ctx context.Context, actor auth.Actor, id, reference string) (Payment, error) {
	return s.settle(ctx, actor, id, StatusFailed, reference)
}

func (s *Service) settle(ctx context.Context, actor auth.Actor, id string, status Status, reference string) (Payment, error) {
	if err := auth.Authorize(actor, auth.ActionPaymentSettle, auth.Target{}); err != nil {
		return Payment{}, err
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > 200 {
		return Payment{}, apperr.Field("reference", "reference must be at most 200 characters")
	}
	before, after, err := s.store.SettlePayment(ctx, id, status, reference, s.now().UTC())
	if err != nil {
		return Payment{}, storeErr(err, "settle payment")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TablePayments, id, before, after)
	return after, nil
}

// HasPaidPayment lets the enrollment service gate paid courses.
func (s *Service) HasPaidPayment(ctx context.Context, studentID, courseID string) (bool, error) {
	return s.store.HasPaidPayment(ctx, studentID, courseID)
}

func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
