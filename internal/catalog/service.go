package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/validation"
)

// UserLookup resolves instructor ids.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (users.User, error)
}

// Service implements the course catalog.
type Service struct {
	store Store
	users UserLookup
	audit audit.Recorder
	now   func() time.Time
}

func NewService(store Store, users UserLookup, rec audit.Recorder) *Service {
	return &Service{store: store, users: users, audit: rec, now: time.Now}
}

// Create adds a draft course. Instructors own what they create; admins may
// name an instructor or leave the course unassigned.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (Course, error) {
	if err := auth.Authorize(actor, auth.ActionCourseCreate, auth.Target{}); err != nil {
		return Course{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := validation.Struct(in); err != nil {
		return Course{}, err
	}
	if in.Level == "" {
		in.Level = LevelBeginner
	}
	var instructorID *string
	switch {
	case actor.IsInstructor():
		id := actor.ID
		instructorID = &id
	case in.InstructorID != nil && *in.InstructorID != "":
		if err := s.requireInstructor(ctx, *in.InstructorID); err != nil {
			return Course{}, err
		}
		instructorID = in.InstructorID
	}
	now := s.now().UTC()
	created, err := s.store.CreateCourse(ctx, Course{
		ID:           ids.New(),
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Level:        in.Level,
		Price:        in.Price,
		Status:       StatusDraft,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Course{}, storeErr(err, "create course")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableCourses, created.ID, nil, created)
	return created, nil
}

func (s *Service) requireInstructor(ctx context.Context, id string) error {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrNotInstructor
		}
		return apperr.Infra(err, "load instructor")
	}
	if u.Role != auth.RoleInstructor || !u.IsActive {
		return ErrNotInstructor
	}
	return nil
}

// Get returns a course. Unpublished courses are hidden from everyone except
// admins and the owning instructor.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, storeErr(err, "get course")
	}
	if c.Status != StatusPublished && !auth.Can(actor, auth.ActionCourseViewDrafts, auth.OwnedBy(c.OwnerID())) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// Lookup loads a course without visibility rules, for use by other services.
func (s *Service) Lookup(ctx context.Context, id string) (Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, storeErr(err, "get course")
	}
	return c, nil
}

// List returns a filtered, sorted page. Students and anonymous callers only
// ever see published courses; instructors also see their own drafts.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, p pagination.Page) (pagination.Result[Course], error) {
	if f.Status != "" && !f.Status.Valid() {
		return pagination.Result[Course]{}, apperr.Field("status", "status must be one of draft, published, archived")
	}
	if f.Level != "" && !f.Level.Valid() {
		return pagination.Result[Course]{}, apperr.Field("level", "level must be one of beginner, intermediate, advanced")
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	f.Search = strings.TrimSpace(f.Search)
	f.VisibleTo = ""
	f.PublicOnly = false
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor():
		f.VisibleTo = actor.ID
	default:
		f.PublicOnly = true
	}
	p = p.Normalize()
	items, total, err := s.store.ListCourses(ctx, f, p)
	if err != nil {
		return pagination.Result[Course]{}, apperr.Infra(err, "list courses")
	}
	return pagination.NewResult(items, total, p), nil
}

// Update applies a patch. Admins may change every field; the owning
// instructor may change the status only.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, patch Patch) (Course, error) {
	if err := validation.Struct(patch); err != nil {
		return Course{}, err
	}
	before, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, storeErr(err, "get course")
	}
	target := auth.OwnedBy(before.OwnerID())
	if !auth.Can(actor, auth.ActionCourseEdit, target) {
		if err := auth.Authorize(actor, auth.ActionCoursePublish, target); err != nil {
			return Course{}, err
		}
		if !patch.onlyStatus() {
			return Course{}, ErrInstructorOnlyStatus
		}
	}
	if patch.empty() {
		return before, nil
	}
	after := before
	if patch.Title != nil {
		after.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		after.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		after.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Level != nil {
		after.Level = *patch.Level
	}
	if patch.Price != nil {
		after.Price = *patch.Price
	}
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	return s.save(ctx, before, after)
}

// SetStatus is the publish toggle used by instructors and admins.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, id string, status Status) (Course, error) {
	return s.Update(ctx, actor, id, Patch{Status: &status})
}

// AssignInstructor hands a course to another instructor (admin only).
func (s *Service) AssignInstructor(ctx context.Context, actor auth.Actor, id, instructorID string) (Course, error) {
	if err := auth.Authorize(actor, auth.ActionCourseAssignInstructor, auth.Target{}); err != nil {
		return Course{}, err
	}
	instructorID = strings.TrimSpace(instructorID)
	if instructorID == "" {
		return Course{}, apperr.Field("instructor_id", "instructor_id is required")
	}
	before, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, storeErr(err, "get course")
	}
	if err := s.requireInstructor(ctx, instructorID); err != nil {
		return Course{}, err
	}
	after := before
	after.InstructorID = &instructorID
	return s.save(ctx, before, after)
}

// save writes after and records the change. A patch that leaves every
// editable field as it was is not a change: nothing is written or audited.
func (s *Service) save(ctx context.Context, before, after Course) (Course, error) {
	if sameEditable(before, after) {
		return before, nil
	}
	after.UpdatedAt = s.now().UTC()
	updated, err := s.store.UpdateCourse(ctx, after)
	if err != nil {
		return Course{}, storeErr(err, "update course")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableCourses, updated.ID, before, updated)
	return updated, nil
}

func sameEditable(a, b Course) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Category == b.Category &&
		a.Level == b.Level &&
		a.Price == b.Price &&
		a.Status == b.Status &&
		a.OwnerID() == b.OwnerID()
}

// Delete removes a course that nothing references any more (admin only).
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Authorize(actor, auth.ActionCourseDelete, auth.Target{}); err != nil {
		return err
	}
	before, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return storeErr(err, "get course")
	}
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return storeErr(err, "delete course")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableCourses, id, before, nil)
	return nil
}

func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
