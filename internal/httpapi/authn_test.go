package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi"},
		{header: "bearer   abc ", token: "abc"},
		{header: "", err: errMissingToken},
		{header: "Bearer ", err: errMissingToken},
		{header: "Basic dXNlcjpwdw==", err: errBadScheme},
	}
	for _, tc := range cases {
		token, err := extractBearerToken(tc.header)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err, "header %q", tc.header)
			assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
			continue
		}
		require.NoError(t, err, "header %q", tc.header)
		assert.Equal(t, tc.token, token)
	}
}

func TestIsPublic(t *testing.T) {
	cases := []struct {
		method string
		parts  []string
		public bool
	}{
		{http.MethodGet, []string{"info"}, true},
		{http.MethodPost, []string{"auth", "login"}, true},
		{http.MethodPost, []string{"auth", "register"}, true},
		{http.MethodGet, []string{"auth", "me"}, false},
		{http.MethodPost, []string{"auth", "logout"}, false},
		{http.MethodGet, []string{"courses"}, true},
		{http.MethodPost, []string{"courses"}, false},
		{http.MethodGet, []string{"courses", "c1"}, true},
		{http.MethodGet, []string{"courses", "c1", "modules"}, true},
		{http.MethodGet, []string{"courses", "c1", "forums"}, true},
		{http.MethodGet, []string{"courses", "c1", "assignments"}, false},
		{http.MethodGet, []string{"courses", "c1", "quizzes"}, false},
		{http.MethodGet, []string{"modules", "m1", "lessons"}, true},
		{http.MethodDelete, []string{"modules", "m1"}, false},
		{http.MethodGet, []string{"lessons", "l1"}, true},
		{http.MethodGet, []string{"enrollments"}, false},
		{http.MethodGet, []string{"settings"}, false},
		{http.MethodGet, nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.public, isPublic(tc.method, tc.parts), "%s %v", tc.method, tc.parts)
	}
}

func TestReadOnly(t *testing.T) {
	assert.True(t, readOnly(http.MethodGet))
	assert.True(t, readOnly(http.MethodHead))
	assert.True(t, readOnly(http.MethodOptions))
	assert.False(t, readOnly(http.MethodPost))
	assert.False(t, readOnly(http.MethodPut))
	assert.False(t, readOnly(http.MethodDelete))
}
