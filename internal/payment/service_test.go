package payment_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app/apptest"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
)

func TestCreateChargesCoursePrice(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, inst, 12550, catalog.StatusPublished)

	p, err := env.Payments.Create(context.Background(), student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(12550), p.Amount)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, c.Title, p.CourseTitle)
	assert.Nil(t, p.SettledAt)

	_, err = env.Payments.Create(context.Background(), student, c.ID)
	assert.ErrorIs(t, err, payment.ErrPendingExists)
}

func TestCreateRejections(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	free := env.Course(t, inst, 0, catalog.StatusPublished)
	draft := env.Course(t, inst, 1000, catalog.StatusDraft)

	_, err := env.Payments.Create(context.Background(), student, free.ID)
	assert.ErrorIs(t, err, payment.ErrFreeCourse)
	_, err = env.Payments.Create(context.Background(), student, draft.ID)
	assert.ErrorIs(t, err, payment.ErrNotPayable)
	_, err = env.Payments.Create(context.Background(), student, "01HNOPE0000000000000000000")
	assert.ErrorIs(t, err, payment.ErrNotPayable)
	_, err = env.Payments.Create(context.Background(), inst, draft.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestSettleTransitions(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, inst, 999, catalog.StatusPublished)

	p, err := env.Payments.Create(context.Background(), student, c.ID)
	require.NoError(t, err)

	_, err = env.Payments.MarkPaid(context.Background(), student, p.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = env.Payments.MarkPaid(context.Background(), env.Admin, p.ID, strings.Repeat("x", 201))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	failed, err := env.Payments.MarkFailed(context.Background(), env.Admin, p.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, failed.Status)
	require.NotNil(t, failed.SettledAt)

	_, err = env.Payments.MarkPaid(context.Background(), env.Admin, p.ID, "late")
	assert.ErrorIs(t, err, payment.ErrNotPending)

	retry, err := env.Payments.Create(context.Background(), student, c.ID)
	require.NoError(t, err, "a failed payment does not block a retry")
	paid, err := env.Payments.MarkPaid(context.Background(), env.Admin, retry.ID, "TX-42")
	require.NoError(t, err)
	assert.Equal(t, "TX-42", paid.Reference)

	_, err = env.Payments.Create(context.Background(), student, c.ID)
	assert.ErrorIs(t, err, payment.ErrAlreadyPaid)

	ok, err := env.Payments.HasPaidPayment(context.Background(), student.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListAndGetScoping(t *testing.T) {
	env := apptest.New(t)
	inst := env.User(t, auth.RoleInstructor).Actor()
	s1 := env.User(t, auth.RoleStudent).Actor()
	s2 := env.User(t, auth.RoleStudent).Actor()
	c := env.Course(t, inst, 500, catalog.StatusPublished)

	p1, err := env.Payments.Create(context.Background(), s1, c.ID)
	require.NoError(t, err)
	_, err = env.Payments.Create(context.Background(), s2, c.ID)
	require.NoError(t, err)

	res, err := env.Payments.List(context.Background(), s1, payment.Filter{}, pagination.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, p1.ID, res.Items[0].ID)

	res, err = env.Payments.List(context.Background(), env.Admin, payment.Filter{Status: payment.StatusPending}, pagination.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	_, err = env.Payments.List(context.Background(), env.Admin, payment.Filter{Status: "refunded"}, pagination.Page{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = env.Payments.Get(context.Background(), s2, p1.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	got, err := env.Payments.Get(context.Background(), s1, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, got.ID)
}
