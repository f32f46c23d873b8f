package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app/apptest"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

func TestInstructorCreatesOwnedDraft(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()

	c, err := env.Catalog.Create(context.Background(), inst, catalog.CreateInput{
		Title: "  Go Basics ", Category: "programming", Price: 4990,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", c.Title)
	assert.Equal(t, catalog.StatusDraft, c.Status)
	assert.Equal(t, catalog.LevelBeginner, c.Level)
	assert.Equal(t, inst.ID, c.OwnerID())
	assert.NotEmpty(t, c.InstructorName)
	assert.False(t, c.IsFree())
}

func TestStudentCannotCreate(t *testing.T) {
	env := apptest.New(t)
	student := env.User(t, auth.RoleStudent).Actor()
	_, err := env.Catalog.Create(context.Background(), student, catalog.CreateInput{Title: "x", Category: "y"})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestCreateValidation(t *testing.T) {
	env := apptest.New(t)
	_, err := env.Catalog.Create(context.Background(), env.Admin, catalog.CreateInput{Title: "   ", Category: "y"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "title", apperr.FieldsOf(err)[0].Field)

	student := env.User(t, auth.RoleStudent)
	_, err = env.Catalog.Create(context.Background(), env.Admin, catalog.CreateInput{
		Title: "x", Category: "y", InstructorID: &student.ID,
	})
	assert.ErrorIs(t, err, catalog.ErrNotInstructor)
}

func TestInstructorMayOnlyToggleStatus(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	other := env.User(t, auth.RoleInstructor).Actor()
	c := env.Course(t, owner, 0, catalog.StatusDraft)

	title := "Renamed"
	_, err := env.Catalog.Update(context.Background(), owner, c.ID, catalog.Patch{Title: &title})
	assert.ErrorIs(t, err, catalog.ErrInstructorOnlyStatus)

	_, err = env.Catalog.SetStatus(context.Background(), other, c.ID, catalog.StatusPublished)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	published, err := env.Catalog.SetStatus(context.Background(), owner, c.ID, catalog.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPublished, published.Status)

	renamed, err := env.Catalog.Update(context.Background(), env.Admin, c.ID, catalog.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
	assert.Equal(t, catalog.StatusPublished, renamed.Status)
}

func TestUnchangedPatchIsNotWritten(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	c := env.Course(t, owner, 1500, catalog.StatusPublished)
	entries := len(env.Store.AuditEntries())

	same, err := env.Catalog.SetStatus(context.Background(), owner, c.ID, catalog.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, c.UpdatedAt, same.UpdatedAt)

	title := "  " + c.Title + " "
	price := c.Price
	same, err = env.Catalog.Update(context.Background(), env.Admin, c.ID, catalog.Patch{Title: &title, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, c.UpdatedAt, same.UpdatedAt)

	same, err = env.Catalog.AssignInstructor(context.Background(), env.Admin, c.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, same.OwnerID())
	assert.Len(t, env.Store.AuditEntries(), entries, "no-op updates must not be audited")

	description := "now with exercises"
	changed, err := env.Catalog.Update(context.Background(), env.Admin, c.ID, catalog.Patch{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, description, changed.Description)
	assert.Len(t, env.Store.AuditEntries(), entries+1)
}

func TestDraftVisibility(t *testing.T) {
	env := apptest.New(t)
	owner := env.User(t, auth.RoleInstructor).Actor()
	other := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	draft := env.Course(t, owner, 0, catalog.StatusDraft)
	published := env.Course(t, other, 0, catalog.StatusPublished)

	_, err := env.Catalog.Get(context.Background(), student, draft.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = env.Catalog.Get(context.Background(), other, draft.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = env.Catalog.Get(context.Background(), owner, draft.ID)
	require.NoError(t, err)
	_, err = env.Catalog.Get(context.Background(), env.Admin, draft.ID)
	require.NoError(t, err)

	ids := func(actor auth.Actor) []string {
		res, err := env.Catalog.List(context.Background(), actor, catalog.Filter{}, pagination.Page{})
		require.NoError(t, err)
		out := make([]string, 0, len(res.Items))
		for _, c := range res.Items {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{published.ID}, ids(student))
	assert.Equal(t, []string{published.ID}, ids(auth.Actor{}))
	assert.ElementsMatch(t, []string{published.ID, draft.ID}, ids(owner))
	assert.Equal(t, []string{published.ID}, ids(other))
	assert.ElementsMatch(t, []string{published.ID, draft.ID}, ids(env.Admin))
}

func TestListSortAndFilter(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	cheap := env.Course(t, inst, 1000, catalog.StatusPublished)
	free := env.Course(t, inst, 0, catalog.StatusPublished)
	pricey := env.Course(t, inst, 9900, catalog.StatusPublished)

	res, err := env.Catalog.List(context.Background(), env.Admin, catalog.Filter{Sort: catalog.SortPriceAsc}, pagination.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{free.ID, cheap.ID, pricey.ID}, []string{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID})

	res, err = env.Catalog.List(context.Background(), env.Admin, catalog.Filter{Search: pricey.Title}, pagination.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)

	_, err = env.Catalog.List(context.Background(), env.Admin, catalog.Filter{Status: "gone"}, pagination.Page{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = catalog.ParseSort("cheapest")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	s, err := catalog.ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, catalog.SortNewest, s)
}

func TestAssignInstructor(t *testing.T) {
	env := apptest.New(t)
	c, err := env.Catalog.Create(context.Background(), env.Admin, catalog.CreateInput{Title: "Unowned", Category: "ops"})
	require.NoError(t, err)
	assert.Nil(t, c.InstructorID)

	inst := env.User(t, auth.RoleInstructor)
	_, err = env.Catalog.AssignInstructor(context.Background(), inst.Actor(), c.ID, inst.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	c, err = env.Catalog.AssignInstructor(context.Background(), env.Admin, c.ID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, c.OwnerID())
	assert.Equal(t, inst.FullName, c.InstructorName)
}

func TestDeleteRestrictedWhileReferenced(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	c := env.Course(t, inst, 0, catalog.StatusPublished)
	m, err := env.Content.CreateModule(context.Background(), inst, c.ID, content.ModuleInput{Title: "Intro"})
	require.NoError(t, err)

	assert.True(t, apperr.Is(env.Catalog.Delete(context.Background(), inst, c.ID), apperr.KindAuthorization))
	assert.ErrorIs(t, env.Catalog.Delete(context.Background(), env.Admin, c.ID), catalog.ErrInUse)

	require.NoError(t, env.Content.DeleteModule(context.Background(), inst, m.ID))
	require.NoError(t, env.Catalog.Delete(context.Background(), env.Admin, c.ID))
	_, err = env.Catalog.Lookup(context.Background(), c.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPriceFromJSON(t *testing.T) {
	var in catalog.CreateInput
	require.NoError(t, in.Price.UnmarshalJSON([]byte(`"49.90"`)))
	assert.Equal(t, money.Cents(4990), in.Price)
}
