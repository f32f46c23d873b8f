package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errAlreadyThere = Conflict("already there")

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("enroll: %w", errAlreadyThere)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, errors.Is(err, errAlreadyThere))
	assert.Equal(t, "already there", PublicMessage(err))
}

func TestInfrastructureMessageIsHidden(t *testing.T) {
	err := Infra(errors.New("dial tcp 10.0.0.1:5432: refused"), "list courses")
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Contains(t, err.Error(), "refused")

	plain := errors.New("boom")
	assert.Equal(t, KindInfrastructure, KindOf(plain))
	assert.Equal(t, "internal server error", PublicMessage(plain))
}

func TestFieldsOf(t *testing.T) {
	err := fmt.Errorf("create: %w", Field("title", "title is required"))
	fields := FieldsOf(err)
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "title", fields[0].Field)
	}
	assert.Nil(t, FieldsOf(errors.New("x")))
	assert.False(t, Is(nil, KindValidation))
}
