// Test Type: Unit Test
// Description: Tests for the errors package - error codes, wrapping, details

package errors_test

import (
	"fmt"
	"testing"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := errors.New(errors.ErrConfigInvalid, "package name is required")

	assert.Equal(t, errors.ErrConfigInvalid, err.Code)
	assert.Equal(t, "[CONFIG_INVALID] package name is required", err.Error())
	assert.Nil(t, err.Wrapped)
}

func TestNewf(t *testing.T) {
	err := errors.Newf(errors.ErrTargetCollision, "duplicate target %q", "plugins/foo")

	assert.Equal(t, `[TARGET_COLLISION] duplicate target "plugins/foo"`, err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := errors.Wrap(cause, errors.ErrFileAccess, "cannot read agent script")

	require.NotNil(t, err)
	assert.Equal(t, "[FILE_ACCESS] cannot read agent script: permission denied", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrFileAccess, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrFileAccess, "ignored %d", 1))
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrSourceConflict, "ambiguous lib layout").
		WithDetail("alias", "local/lib/check_mk").
		WithDetail("real", "local/lib/python3/cmk")

	details := errors.GetErrorDetails(err)
	assert.Equal(t, "local/lib/check_mk", details["alias"])
	assert.Equal(t, "local/lib/python3/cmk", details["real"])
}

func TestIsErrorCode(t *testing.T) {
	inner := errors.New(errors.ErrPythonSyntax, "invalid syntax")
	wrapped := fmt.Errorf("validation: %w", inner)

	assert.True(t, errors.IsErrorCode(wrapped, errors.ErrPythonSyntax))
	assert.False(t, errors.IsErrorCode(wrapped, errors.ErrConfigParse))
	assert.False(t, errors.IsErrorCode(fmt.Errorf("plain"), errors.ErrPythonSyntax))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, errors.ErrConfigParse,
		errors.GetErrorCode(errors.New(errors.ErrConfigParse, "bad ini")))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(fmt.Errorf("plain")))
}

func TestIsInternal(t *testing.T) {
	assert.True(t, errors.New(errors.ErrArchiveIntegrity, "member missing").IsInternal())
	assert.True(t, errors.New(errors.ErrInternal, "bug").IsInternal())
	assert.False(t, errors.New(errors.ErrConfigInvalid, "user input").IsInternal())
}
