package content_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app/apptest"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
)

func ptr[T any](v T) *T { return &v }

func TestLessonRequiresExistingModule(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	env.Course(t, inst, 0, catalog.StatusPublished)

	before := len(env.Store.AuditEntries())
	_, err := env.Content.CreateLesson(context.Background(), inst, "01HNOSUCHMODULE00000000000", content.LessonInput{
		Title: "Orphan", ContentType: content.ContentText, Body: "hello",
	})
	assert.ErrorIs(t, err, content.ErrModuleRequired)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, env.Store.AuditEntries(), before, "nothing written")
}

func TestLessonBodyRules(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	c := env.Course(t, inst, 0, catalog.StatusDraft)
	m, err := env.Content.CreateModule(context.Background(), inst, c.ID, content.ModuleInput{Title: "Week 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Position)

	cases := []struct {
		name  string
		in    content.LessonInput
		field string
	}{
		{"video without url", content.LessonInput{Title: "v", ContentType: content.ContentVideo}, "content_url"},
		{"pdf without source", content.LessonInput{Title: "p", ContentType: content.ContentPDF}, "document_ref"},
		{"text without body", content.LessonInput{Title: "t", ContentType: content.ContentText, Body: "  "}, "body"},
		{"unknown type", content.LessonInput{Title: "x", ContentType: "audio"}, "content_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Content.CreateLesson(context.Background(), inst, m.ID, tc.in)
			require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
			assert.Equal(t, tc.field, apperr.FieldsOf(err)[0].Field)
		})
	}

	l1, err := env.Content.CreateLesson(context.Background(), inst, m.ID, content.LessonInput{
		Title: "Intro", ContentType: content.ContentPDF, DocumentRef: "docs/intro.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, l1.CourseID)
	assert.Equal(t, 1, l1.Position)
	l2, err := env.Content.CreateLesson(context.Background(), inst, m.ID, content.LessonInput{
		Title: "Demo", ContentType: content.ContentVideo, ContentURL: "https://video.example.com/1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, l2.Position)

	_, err = env.Content.UpdateLesson(context.Background(), inst, l2.ID, content.LessonPatch{ContentURL: ptr("")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.ErrorIs(t, env.Content.DeleteModule(context.Background(), inst, m.ID), content.ErrModuleInUse)
	require.NoError(t, env.Content.DeleteLesson(context.Background(), inst, l1.ID))
	require.NoError(t, env.Content.DeleteLesson(context.Background(), inst, l2.ID))
	require.NoError(t, env.Content.DeleteModule(context.Background(), inst, m.ID))
}

func TestOnlyOwnerManagesContent(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	other := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, owner, 0, catalog.StatusPublished)

	for _, actor := range []auth.Actor{other, student} {
		_, err := env.Content.CreateModule(context.Background(), actor, c.ID, content.ModuleInput{Title: "x"})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		_, err = env.Content.CreateForum(context.Background(), actor, c.ID, content.ForumInput{Title: "x"})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	}

	_, err := env.Content.CreateModule(context.Background(), env.Admin, c.ID, content.ModuleInput{Title: "By admin"})
	require.NoError(t, err)
}

func TestDraftContentHiddenFromStudents(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, owner, 0, catalog.StatusPublished)

	draft, err := env.Content.CreateModule(context.Background(), owner, c.ID, content.ModuleInput{Title: "Draft"})
	require.NoError(t, err)
	live, err := env.Content.CreateModule(context.Background(), owner, c.ID, content.ModuleInput{Title: "Live"})
	require.NoError(t, err)
	_, err = env.Content.UpdateModule(context.Background(), owner, live.ID, content.ModulePatch{IsPublished: ptr(true)})
	require.NoError(t, err)

	mods, err := env.Content.ListModules(context.Background(), student, c.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, live.ID, mods[0].ID)

	mods, err = env.Content.ListModules(context.Background(), owner, c.ID)
	require.NoError(t, err)
	assert.Len(t, mods, 2)

	_, err = env.Content.GetModule(context.Background(), student, draft.ID)
	assert.ErrorIs(t, err, content.ErrModuleNotFound)

	hidden := env.Course(t, owner, 0, catalog.StatusDraft)
	_, err = env.Content.ListModules(context.Background(), student, hidden.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAssessedContentRequiresEnrollment(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, owner, 0, catalog.StatusPublished)

	due := time.Date(2026, 12, 1, 17, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	a, err := env.Content.CreateAssignment(context.Background(), owner, c.ID, content.AssignmentInput{
		Title: "Essay", MaxScore: 100, DueDate: &due,
	})
	require.NoError(t, err)
	require.NotNil(t, a.DueDate)
	assert.Equal(t, time.UTC, a.DueDate.Location())
	_, err = env.Content.UpdateAssignment(context.Background(), owner, a.ID, content.AssignmentPatch{IsPublished: ptr(true)})
	require.NoError(t, err)

	q, err := env.Content.CreateQuiz(context.Background(), owner, c.ID, content.QuizInput{Title: "Check", DurationMinutes: 15, PassingScore: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, q.MaxAttempts)

	_, err = env.Content.ListAssignments(context.Background(), student, c.ID)
	assert.ErrorIs(t, err, content.ErrNotEnrolled)

	_, err = env.Enrollments.Enroll(context.Background(), student, c.ID)
	require.NoError(t, err)
	items, err := env.Content.ListAssignments(context.Background(), student, c.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	quizzes, err := env.Content.ListQuizzes(context.Background(), student, c.ID)
	require.NoError(t, err)
	assert.Empty(t, quizzes, "unpublished quiz hidden")
}

func TestForumDefaultsAndDelete(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	c := env.Course(t, owner, 0, catalog.StatusDraft)

	f, err := env.Content.CreateForum(context.Background(), owner, c.ID, content.ForumInput{Title: "Q&A"})
	require.NoError(t, err)
	assert.Equal(t, content.ForumGeneral, f.Category)

	_, err = env.Content.UpdateForum(context.Background(), owner, f.ID, content.ForumPatch{Category: ptr(content.ForumCategory("random"))})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, env.Content.DeleteForum(context.Background(), owner, f.ID))
	_, err = env.Content.GetForum(context.Background(), owner, f.ID)
	assert.ErrorIs(t, err, content.ErrForumNotFound)
}
