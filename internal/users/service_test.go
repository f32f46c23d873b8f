package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/memstore"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

type fixture struct {
	store  *memstore.Store
	tokens *auth.TokenService
	svc    *users.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	tokens, err := auth.NewTokenService(auth.WithSecret("users-test-secret-0123"))
	require.NoError(t, err)
	return fixture{store: store, tokens: tokens, svc: users.NewService(store, tokens, audit.NewTrail(store))}
}

func (f fixture) register(t *testing.T, email string, role auth.Role) users.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), users.RegisterInput{
		Email: email, Password: "correct horse", FullName: "Test " + string(role), Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Register(context.Background(), users.RegisterInput{
		Email: "  Ada@Example.COM ", Password: "correct horse", FullName: " Ada ",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStudent, u.Role)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.FullName)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	entries := f.store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
	_, leaked := entries[0].NewValues["password_hash"]
	assert.False(t, leaked)
}

func TestRegisterRejectsAdminAndDuplicates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), users.RegisterInput{
		Email: "x@example.com", Password: "correct horse", FullName: "X", Role: auth.RoleAdmin,
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.register(t, "dup@example.com", auth.RoleStudent)
	_, err = f.svc.Register(context.Background(), users.RegisterInput{
		Email: "DUP@example.com", Password: "correct horse", FullName: "Dup",
	})
	assert.ErrorIs(t, err, users.ErrEmailTaken)

	_, err = f.svc.Register(context.Background(), users.RegisterInput{
		Email: "short@example.com", Password: "short", FullName: "Short",
	})
	fields := apperr.FieldsOf(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "password", fields[0].Field)
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "inst@example.com", auth.RoleInstructor)

	_, err := f.svc.Login(context.Background(), "inst@example.com", "wrong password")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	_, err = f.svc.Login(context.Background(), "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	sess, err := f.svc.Login(context.Background(), "INST@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
	require.NotNil(t, sess.User.LastLoginAt)

	actor, err := f.svc.Authenticate(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.Actor(), actor)

	_, err = f.svc.Authenticate(context.Background(), "garbage")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	entries := f.store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionLogin, last.Action)
	require.NotNil(t, last.ActorUserID)
	assert.Equal(t, u.ID, *last.ActorUserID)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	f := newFixture(t)
	admin, err := f.svc.CreateSuperuser(context.Background(), "root@example.com", "Root", "correct horse")
	require.NoError(t, err)
	u := f.register(t, "s@example.com", auth.RoleStudent)
	sess, err := f.svc.Login(context.Background(), "s@example.com", "correct horse")
	require.NoError(t, err)

	role := auth.RoleInstructor
	_, err = f.svc.Update(context.Background(), admin.Actor(), u.ID, users.Patch{Role: &role})
	require.NoError(t, err)
	actor, err := f.svc.Authenticate(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleInstructor, actor.Role)

	inactive := false
	_, err = f.svc.Update(context.Background(), admin.Actor(), u.ID, users.Patch{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, users.ErrInactive)
	_, err = f.svc.Login(context.Background(), "s@example.com", "correct horse")
	assert.ErrorIs(t, err, users.ErrInactive)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	admin, err := f.svc.CreateSuperuser(context.Background(), "root@example.com", "Root", "correct horse")
	require.NoError(t, err)
	s1 := f.register(t, "s1@example.com", auth.RoleStudent)
	s2 := f.register(t, "s2@example.com", auth.RoleStudent)

	name := "Renamed"
	updated, err := f.svc.Update(context.Background(), s1.Actor(), s1.ID, users.Patch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)

	_, err = f.svc.Update(context.Background(), s1.Actor(), s2.ID, users.Patch{FullName: &name})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	role := auth.RoleAdmin
	_, err = f.svc.Update(context.Background(), s1.Actor(), s1.ID, users.Patch{Role: &role})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "students cannot promote themselves")

	inactive := false
	_, err = f.svc.Update(context.Background(), admin.Actor(), admin.ID, users.Patch{IsActive: &inactive})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	email := "s1@example.com"
	_, err = f.svc.Update(context.Background(), admin.Actor(), s2.ID, users.Patch{Email: &email})
	assert.ErrorIs(t, err, users.ErrEmailTaken)

	password := "another horse"
	_, err = f.svc.Update(context.Background(), s1.Actor(), s1.ID, users.Patch{Password: &password})
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), "s1@example.com", "another horse")
	require.NoError(t, err)
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	admin, err := f.svc.CreateSuperuser(context.Background(), "root@example.com", "Root", "correct horse")
	require.NoError(t, err)
	f.register(t, "a@example.com", auth.RoleStudent)
	inst := f.register(t, "b@example.com", auth.RoleInstructor)

	res, err := f.svc.List(context.Background(), admin.Actor(), users.Filter{Role: auth.RoleInstructor}, pagination.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, inst.ID, res.Items[0].ID)

	res, err = f.svc.List(context.Background(), admin.Actor(), users.Filter{Search: "example"}, pagination.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Items, 2)

	_, err = f.svc.List(context.Background(), inst.Actor(), users.Filter{}, pagination.Page{})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	assert.ErrorIs(t, f.svc.Delete(context.Background(), admin.Actor(), admin.ID), users.ErrSelfDelete)
	require.NoError(t, f.svc.Delete(context.Background(), admin.Actor(), inst.ID))
	_, err = f.svc.Get(context.Background(), admin.Actor(), inst.ID)
	assert.ErrorIs(t, err, users.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), admin.Actor(), inst.ID), users.ErrNotFound)
}

func TestLogoutRequiresActor(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Logout(context.Background(), auth.Actor{})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	u := f.register(t, "s@example.com", auth.RoleStudent)
	require.NoError(t, f.svc.Logout(context.Background(), u.Actor()))
	entries := f.store.AuditEntries()
	assert.Equal(t, audit.ActionLogout, entries[len(entries)-1].Action)
}
