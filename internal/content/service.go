package content

import (
	"context"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/validation"
)

// CourseReader loads parent courses.
type CourseReader interface {
	GetCourse(ctx context.Context, id string) (catalog.Course, error)
}

// EnrollmentChecker reports whether a student holds a live enrollment.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

// Service implements the content tree.
type Service struct {
	store    Store
	courses  CourseReader
	enrolled EnrollmentChecker
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(store Store, courses CourseReader, enrolled EnrollmentChecker, rec audit.Recorder) *Service {
	return &Service{store: store, courses: courses, enrolled: enrolled, audit: rec, now: time.Now}
}

// manage loads the course and checks the actor may change its content.
func (s *Service) manage(ctx context.Context, actor auth.Actor, courseID string) (catalog.Course, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return catalog.Course{}, storeErr(err, "get course")
	}
	if err := auth.Authorize(actor, auth.ActionContentManage, auth.OwnedBy(c.OwnerID())); err != nil {
		return catalog.Course{}, err
	}
	return c, nil
}

// access is the read view of a course: whether drafts are visible, and an
// error when the actor may not read it at all. Assessed content (assignments,
// quizzes) additionally requires students to be enrolled.
func (s *Service) access(ctx context.Context, actor auth.Actor, courseID string, assessed bool) (bool, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return false, storeErr(err, "get course")
	}
	if auth.Can(actor, auth.ActionContentManage, auth.OwnedBy(c.OwnerID())) {
		return true, nil
	}
	if c.Status != catalog.StatusPublished {
		return false, catalog.ErrNotFound
	}
	if assessed && !actor.IsInstructor() {
		if !actor.IsStudent() {
			return false, ErrNotEnrolled
		}
		ok, err := s.enrolled.IsEnrolled(ctx, actor.ID, courseID)
		if err != nil {
			return false, apperr.Infra(err, "check enrollment")
		}
		if !ok {
			return false, ErrNotEnrolled
		}
	}
	return false, nil
}

func (s *Service) stamp() time.Time { return s.now().UTC() }

// ---- modules ----

func (s *Service) CreateModule(ctx context.Context, actor auth.Actor, courseID string, in ModuleInput) (Module, error) {
	if _, err := s.manage(ctx, actor, courseID); err != nil {
		return Module{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return Module{}, err
	}
	if in.Position == 0 {
		siblings, err := s.store.ListModules(ctx, courseID)
		if err != nil {
			return Module{}, apperr.Infra(err, "list modules")
		}
		in.Position = len(siblings) + 1
	}
	now := s.stamp()
	m, err := s.store.CreateModule(ctx, Module{
		ID:          ids.New(),
		CourseID:    courseID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Position:    in.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Module{}, storeErr(err, "create module")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableModules, m.ID, nil, m)
	return m, nil
}

func (s *Service) GetModule(ctx context.Context, actor auth.Actor, id string) (Module, error) {
	m, err := s.store.GetModule(ctx, id)
	if err != nil {
		return Module{}, storeErr(err, "get module")
	}
	drafts, err := s.access(ctx, actor, m.CourseID, false)
	if err != nil {
		return Module{}, err
	}
	if !drafts && !m.IsPublished {
		return Module{}, ErrModuleNotFound
	}
	return m, nil
}

func (s *Service) ListModules(ctx context.Context, actor auth.Actor, courseID string) ([]Module, error) {
	drafts, err := s.access(ctx, actor, courseID, false)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListModules(ctx, courseID)
	if err != nil {
		return nil, apperr.Infra(err, "list modules")
	}
	return visible(all, drafts, func(m Module) bool { return m.IsPublished }), nil
}

func (s *Service) UpdateModule(ctx context.Context, actor auth.Actor, id string, p ModulePatch) (Module, error) {
	if err := validation.Struct(p); err != nil {
		return Module{}, err
	}
	before, err := s.store.GetModule(ctx, id)
	if err != nil {
		return Module{}, storeErr(err, "get module")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return Module{}, err
	}
	after := before
	setString(&after.Title, p.Title)
	setString(&after.Description, p.Description)
	set(&after.Position, p.Position)
	set(&after.IsPublished, p.IsPublished)
	after.UpdatedAt = s.stamp()
	m, err := s.store.UpdateModule(ctx, after)
	if err != nil {
		return Module{}, storeErr(err, "update module")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableModules, id, before, m)
	return m, nil
}

func (s *Service) DeleteModule(ctx context.Context, actor auth.Actor, id string) error {
	before, err := s.store.GetModule(ctx, id)
	if err != nil {
		return storeErr(err, "get module")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return err
	}
	if err := s.store.DeleteModule(ctx, id); err != nil {
		return storeErr(err, "delete module")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableModules, id, before, nil)
	return nil
}

// ---- lessons ----

// CreateLesson adds a lesson under moduleID. A missing module is a validation
// failure, not a 404, and nothing is written.
func (s *Service) CreateLesson(ctx context.Context, actor auth.Actor, moduleID string, in LessonInput) (Lesson, error) {
	mod, err := s.store.GetModule(ctx, moduleID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Lesson{}, ErrModuleRequired
		}
		return Lesson{}, apperr.Infra(err, "get module")
	}
	if _, err := s.manage(ctx, actor, mod.CourseID); err != nil {
		return Lesson{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return Lesson{}, err
	}
	if in.Position == 0 {
		siblings, err := s.store.ListLessons(ctx, moduleID)
		if err != nil {
			return Lesson{}, apperr.Infra(err, "list lessons")
		}
		in.Position = len(siblings) + 1
	}
	now := s.stamp()
	l := Lesson{
		ID:              ids.New(),
		ModuleID:        moduleID,
		CourseID:        mod.CourseID,
		Title:           in.Title,
		ContentType:     in.ContentType,
		ContentURL:      strings.TrimSpace(in.ContentURL),
		DocumentRef:     strings.TrimSpace(in.DocumentRef),
		Body:            in.Body,
		DurationMinutes: in.DurationMinutes,
		Position:        in.Position,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := checkLessonBody(l); err != nil {
		return Lesson{}, err
	}
	created, err := s.store.CreateLesson(ctx, l)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Lesson{}, ErrModuleRequired
		}
		return Lesson{}, storeErr(err, "create lesson")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableLessons, created.ID, nil, created)
	return created, nil
}

func (s *Service) GetLesson(ctx context.Context, actor auth.Actor, id string) (Lesson, error) {
	l, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, storeErr(err, "get lesson")
	}
	drafts, err := s.access(ctx, actor, l.CourseID, false)
	if err != nil {
		return Lesson{}, err
	}
	if !drafts {
		mod, err := s.store.GetModule(ctx, l.ModuleID)
		if err != nil {
			return Lesson{}, storeErr(err, "get module")
		}
		if !l.IsPublished || !mod.IsPublished {
			return Lesson{}, ErrLessonNotFound
		}
	}
	return l, nil
}

func (s *Service) ListLessons(ctx context.Context, actor auth.Actor, moduleID string) ([]Lesson, error) {
	mod, err := s.store.GetModule(ctx, moduleID)
	if err != nil {
		return nil, storeErr(err, "get module")
	}
	drafts, err := s.access(ctx, actor, mod.CourseID, false)
	if err != nil {
		return nil, err
	}
	if !drafts && !mod.IsPublished {
		return nil, ErrModuleNotFound
	}
	all, err := s.store.ListLessons(ctx, moduleID)
	if err != nil {
		return nil, apperr.Infra(err, "list lessons")
	}
	return visible(all, drafts, func(l Lesson) bool { return l.IsPublished }), nil
}

func (s *Service) UpdateLesson(ctx context.Context, actor auth.Actor, id string, p LessonPatch) (Lesson, error) {
	if err := validation.Struct(p); err != nil {
		return Lesson{}, err
	}
	before, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, storeErr(err, "get lesson")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return Lesson{}, err
	}
	after := before
	setString(&after.Title, p.Title)
	set(&after.ContentType, p.ContentType)
	setString(&after.ContentURL, p.ContentURL)
	setString(&after.DocumentRef, p.DocumentRef)
	set(&after.Body, p.Body)
	set(&after.DurationMinutes, p.DurationMinutes)
	set(&after.Position, p.Position)
	set(&after.IsPublished, p.IsPublished)
	if err := checkLessonBody(after); err != nil {
		return Lesson{}, err
	}
	after.UpdatedAt = s.stamp()
	l, err := s.store.UpdateLesson(ctx, after)
	if err != nil {
		return Lesson{}, storeErr(err, "update lesson")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableLessons, id, before, l)
	return l, nil
}

func (s *Service) DeleteLesson(ctx context.Context, actor auth.Actor, id string) error {
	before, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return storeErr(err, "get lesson")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return err
	}
	if err := s.store.DeleteLesson(ctx, id); err != nil {
		return storeErr(err, "delete lesson")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableLessons, id, before, nil)
	return nil
}

// ---- assignments ----

func (s *Service) CreateAssignment(ctx context.Context, actor auth.Actor, courseID string, in AssignmentInput) (Assignment, error) {
	if _, err := s.manage(ctx, actor, courseID); err != nil {
		return Assignment{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return Assignment{}, err
	}
	now := s.stamp()
	a, err := s.store.CreateAssignment(ctx, Assignment{
		ID:            ids.New(),
		CourseID:      courseID,
		Title:         in.Title,
		Instructions:  in.Instructions,
		DueDate:       utcPtr(in.DueDate),
		MaxScore:      in.MaxScore,
		AttachmentURL: strings.TrimSpace(in.AttachmentURL),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Assignment{}, storeErr(err, "create assignment")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableAssignments, a.ID, nil, a)
	return a, nil
}

func (s *Service) GetAssignment(ctx context.Context, actor auth.Actor, id string) (Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, storeErr(err, "get assignment")
	}
	drafts, err := s.access(ctx, actor, a.CourseID, true)
	if err != nil {
		return Assignment{}, err
	}
	if !drafts && !a.IsPublished {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

func (s *Service) ListAssignments(ctx context.Context, actor auth.Actor, courseID string) ([]Assignment, error) {
	drafts, err := s.access(ctx, actor, courseID, true)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, apperr.Infra(err, "list assignments")
	}
	return visible(all, drafts, func(a Assignment) bool { return a.IsPublished }), nil
}

func (s *Service) UpdateAssignment(ctx context.Context, actor auth.Actor, id string, p AssignmentPatch) (Assignment, error) {
	if err := validation.Struct(p); err != nil {
		return Assignment{}, err
	}
	before, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, storeErr(err, "get assignment")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return Assignment{}, err
	}
	after := before
	setString(&after.Title, p.Title)
	set(&after.Instructions, p.Instructions)
	if p.DueDate != nil {
		after.DueDate = utcPtr(p.DueDate)
	}
	set(&after.MaxScore, p.MaxScore)
	setString(&after.AttachmentURL, p.AttachmentURL)
	set(&after.IsPublished, p.IsPublished)
	after.UpdatedAt = s.stamp()
	a, err := s.store.UpdateAssignment(ctx, after)
	if err != nil {
		return Assignment{}, storeErr(err, "update assignment")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableAssignments, id, before, a)
	return a, nil
}

func (s *Service) DeleteAssignment(ctx context.Context, actor auth.Actor, id string) error {
	before, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return storeErr(err, "get assignment")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return err
	}
	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		return storeErr(err, "delete assignment")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableAssignments, id, before, nil)
	return nil
}

// ---- quizzes ----

func (s *Service) CreateQuiz(ctx context.Context, actor auth.Actor, courseID string, in QuizInput) (Quiz, error) {
	if _, err := s.manage(ctx, actor, courseID); err != nil {
		return Quiz{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.MaxAttempts == 0 {
		in.MaxAttempts = 1
	}
	if err := validation.Struct(in); err != nil {
		return Quiz{}, err
	}
	now := s.stamp()
	q, err := s.store.CreateQuiz(ctx, Quiz{
		ID:               ids.New(),
		CourseID:         courseID,
		Title:            in.Title,
		Description:      strings.TrimSpace(in.Description),
		DurationMinutes:  in.DurationMinutes,
		PassingScore:     in.PassingScore,
		MaxAttempts:      in.MaxAttempts,
		ShuffleQuestions: in.ShuffleQuestions,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return Quiz{}, storeErr(err, "create quiz")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableQuizzes, q.ID, nil, q)
	return q, nil
}

func (s *Service) GetQuiz(ctx context.Context, actor auth.Actor, id string) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, storeErr(err, "get quiz")
	}
	drafts, err := s.access(ctx, actor, q.CourseID, true)
	if err != nil {
		return Quiz{}, err
	}
	if !drafts && !q.IsPublished {
		return Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

func (s *Service) ListQuizzes(ctx context.Context, actor auth.Actor, courseID string) ([]Quiz, error) {
	drafts, err := s.access(ctx, actor, courseID, true)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListQuizzes(ctx, courseID)
	if err != nil {
		return nil, apperr.Infra(err, "list quizzes")
	}
	return visible(all, drafts, func(q Quiz) bool { return q.IsPublished }), nil
}

func (s *Service) UpdateQuiz(ctx context.Context, actor auth.Actor, id string, p QuizPatch) (Quiz, error) {
	if err := validation.Struct(p); err != nil {
		return Quiz{}, err
	}
	before, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, storeErr(err, "get quiz")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return Quiz{}, err
	}
	after := before
	setString(&after.Title, p.Title)
	setString(&after.Description, p.Description)
	set(&after.DurationMinutes, p.DurationMinutes)
	set(&after.PassingScore, p.PassingScore)
	set(&after.MaxAttempts, p.MaxAttempts)
	set(&after.ShuffleQuestions, p.ShuffleQuestions)
	set(&after.IsPublished, p.IsPublished)
	after.UpdatedAt = s.stamp()
	q, err := s.store.UpdateQuiz(ctx, after)
	if err != nil {
		return Quiz{}, storeErr(err, "update quiz")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableQuizzes, id, before, q)
	return q, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, actor auth.Actor, id string) error {
	before, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return storeErr(err, "get quiz")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return storeErr(err, "delete quiz")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableQuizzes, id, before, nil)
	return nil
}

// ---- forums ----

func (s *Service) CreateForum(ctx context.Context, actor auth.Actor, courseID string, in ForumInput) (Forum, error) {
	if _, err := s.manage(ctx, actor, courseID); err != nil {
		return Forum{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Category == "" {
		in.Category = ForumGeneral
	}
	if err := validation.Struct(in); err != nil {
		return Forum{}, err
	}
	now := s.stamp()
	f, err := s.store.CreateForum(ctx, Forum{
		ID:          ids.New(),
		CourseID:    courseID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Forum{}, storeErr(err, "create forum")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableForums, f.ID, nil, f)
	return f, nil
}

func (s *Service) GetForum(ctx context.Context, actor auth.Actor, id string) (Forum, error) {
	f, err := s.store.GetForum(ctx, id)
	if err != nil {
		return Forum{}, storeErr(err, "get forum")
	}
	drafts, err := s.access(ctx, actor, f.CourseID, false)
	if err != nil {
		return Forum{}, err
	}
	if !drafts && !f.IsPublished {
		return Forum{}, ErrForumNotFound
	}
	return f, nil
}

func (s *Service) ListForums(ctx context.Context, actor auth.Actor, courseID string) ([]Forum, error) {
	drafts, err := s.access(ctx, actor, courseID, false)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListForums(ctx, courseID)
	if err != nil {
		return nil, apperr.Infra(err, "list forums")
	}
	return visible(all, drafts, func(f Forum) bool { return f.IsPublished }), nil
}

func (s *Service) UpdateForum(ctx context.Context, actor auth.Actor, id string, p ForumPatch) (Forum, error) {
	if err := validation.Struct(p); err != nil {
		return Forum{}, err
	}
	before, err := s.store.GetForum(ctx, id)
	if err != nil {
		return Forum{}, storeErr(err, "get forum")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return Forum{}, err
	}
	after := before
	setString(&after.Title, p.Title)
	setString(&after.Description, p.Description)
	set(&after.Category, p.Category)
	set(&after.IsPublished, p.IsPublished)
	after.UpdatedAt = s.stamp()
	f, err := s.store.UpdateForum(ctx, after)
	if err != nil {
		return Forum{}, storeErr(err, "update forum")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableForums, id, before, f)
	return f, nil
}

func (s *Service) DeleteForum(ctx context.Context, actor auth.Actor, id string) error {
	before, err := s.store.GetForum(ctx, id)
	if err != nil {
		return storeErr(err, "get forum")
	}
	if _, err := s.manage(ctx, actor, before.CourseID); err != nil {
		return err
	}
	if err := s.store.DeleteForum(ctx, id); err != nil {
		return storeErr(err, "delete forum")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableForums, id, before, nil)
	return nil
}

// ---- helpers ----

func visible[T any](all []T, drafts bool, published func(T) bool) []T {
	out := make([]T, 0, len(all))
	for _, item := range all {
		if drafts || published(item) {
			out = append(out, item)
		}
	}
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
