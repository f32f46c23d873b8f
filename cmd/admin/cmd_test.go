package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app/apptest"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
)

func setup(t *testing.T, passwords ...string) (*commandLine, *apptest.Env, *bytes.Buffer) {
	t.Helper()
	env := apptest.New(t)
	out := &bytes.Buffer{}

	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, nil
		}
		pw := passwords[0]
		passwords = passwords[1:]
		return []byte(pw), nil
	}
	return &commandLine{users: env.Users, out: out}, env, out
}

func Test_commandLine_usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: []string{"admin"}},
		{name: "unknown subcommand", args: []string{"admin", "lol"}},
		{name: "missing email", args: []string{"admin", "createsuperuser"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _, out := setup(t)
			err := cli.run(context.Background(), tt.args)
			require.ErrorIs(t, err, errHelp)
			assert.NotEmpty(t, out.String())
		})
	}
}

func Test_commandLine_createsuperuser(t *testing.T) {
	cli, env, out := setup(t, "s3cret-passphrase", "s3cret-passphrase")

	err := cli.run(context.Background(), []string{"admin", "createsuperuser", "-email", "Root@SkillArc.test", "-name", "Root"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "superuser root@skillarc.test created")

	session, err := env.Users.Login(context.Background(), "root@skillarc.test", "s3cret-passphrase")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, session.User.Role)
}

func Test_commandLine_createsuperuser_errors(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		cli, _, _ := setup(t, "s3cret-passphrase", "something-else")
		err := cli.run(context.Background(), []string{"admin", "createsuperuser", "-email", "root@skillarc.test"})
		require.ErrorIs(t, err, errPasswordMismatch)
	})

	t.Run("short password", func(t *testing.T) {
		cli, _, _ := setup(t, "short", "short")
		err := cli.run(context.Background(), []string{"admin", "createsuperuser", "-email", "root@skillarc.test"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		cli, _, _ := setup(t, "s3cret-passphrase", "s3cret-passphrase")
		err := cli.run(context.Background(), []string{"admin", "createsuperuser", "-email", "admin@skillarc.test"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})
}
