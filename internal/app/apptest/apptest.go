// Package apptest builds an in-memory application for tests.
package apptest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/memstore"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

// Password is shared by every account the helpers create.
const Password = "correct horse battery"

// Env is an application over a fresh memstore.
type Env struct {
	*app.Services
	Store *memstore.Store
	Admin auth.Actor

	seq atomic.Int64
}

// New returns an Env with one admin already provisioned.
func New(t testing.TB) *Env {
	t.Helper()
	store := memstore.New()
	tokens, err := auth.NewTokenService(auth.WithSecret("apptest-secret-0123456789"))
	require.NoError(t, err)
	env := &Env{Services: app.New(store, tokens, t.TempDir()), Store: store}
	admin, err := env.Users.CreateSuperuser(context.Background(), "admin@skillarc.test", "Site Admin", Password)
	require.NoError(t, err)
	env.Admin = admin.Actor()
	return env
}

// User registers an active account with the given role.
func (e *Env) User(t testing.TB, role auth.Role) users.User {
	t.Helper()
	n := e.seq.Add(1)
	u, err := e.Users.Create(context.Background(), e.Admin, users.CreateInput{
		Email:    fmt.Sprintf("%s%d@skillarc.test", role, n),
		Password: Password,
		FullName: fmt.Sprintf("%s %d", role, n),
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

// Course creates a course owned by instructor and sets its status.
func (e *Env) Course(t testing.TB, instructor auth.Actor, price money.Cents, status catalog.Status) catalog.Course {
	t.Helper()
	n := e.seq.Add(1)
	c, err := e.Catalog.Create(context.Background(), instructor, catalog.CreateInput{
		Title:    fmt.Sprintf("Course %d", n),
		Category: "programming",
		Price:    price,
	})
	require.NoError(t, err)
	if status != catalog.StatusDraft {
		c, err = e.Catalog.SetStatus(context.Background(), instructor, c.ID, status)
		require.NoError(t, err)
	}
	return c
}
