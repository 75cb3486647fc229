package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndUnwrap(t *testing.T) {
	root := errors.New("disk full")
	err := Wrap(root, ErrInternal.Code, "save report")

	assert.Equal(t, "save report: disk full", err.Error())
	assert.True(t, errors.Is(err, root))
}

func TestCloneLeavesSourceUntouched(t *testing.T) {
	clone := Clone(ErrContractViolation, "total must be positive")
	assert.Equal(t, "CONTRACT_VIOLATION", clone.Code)
	assert.Equal(t, "total must be positive", clone.Message)
	assert.Equal(t, "scoring contract violated", ErrContractViolation.Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestFromErrorAndHasCode(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)

	nested := fmt.Errorf("load: %w", Wrap(Clone(ErrNotFound, "sheet missing"), ErrInvalidInput.Code, "ingest"))
	assert.Equal(t, ErrInvalidInput.Code, FromError(nested).Code)
	assert.True(t, HasCode(nested, ErrInvalidInput.Code))
	assert.True(t, HasCode(nested, ErrNotFound.Code))
	assert.False(t, HasCode(nested, ErrValidation.Code))
	assert.False(t, HasCode(errors.New("plain"), ErrInternal.Code))
}
