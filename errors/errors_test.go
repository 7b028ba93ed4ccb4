package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandError(t *testing.T) {
	err := &CommandError{
		Code:    UserNotFound,
		Message: "Could not find user \"admin.alice\"",
		Command: "hello",
	}

	assert.Equal(t, "UserNotFound (11) in hello: Could not find user \"admin.alice\"", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestCommandErrorWithoutCommand(t *testing.T) {
	err := &CommandError{
		Code:    InternalError,
		Message: "Internal server error",
	}

	assert.Equal(t, "InternalError (1): Internal server error", err.Error())
}

func TestCommandErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &CommandError{
		Code:    InternalError,
		Message: "Wrapper error",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestCodeName(t *testing.T) {
	assert.Equal(t, "TypeMismatch", CodeName(TypeMismatch))
	assert.Equal(t, "InvalidOptions", CodeName(InvalidOptions))
	assert.Equal(t, "UnknownError", CodeName(9999))

	// Codes this service never raises have no name
	assert.Equal(t, "UnknownError", CodeName(2))
	assert.Equal(t, "UnknownError", CodeName(18))
}

func TestTypeMismatchError(t *testing.T) {
	err := NewTypeMismatch("hello", "saslSupportedMechs", "string", "int")

	assert.Equal(t, TypeMismatch, err.Code)
	assert.Equal(t, "saslSupportedMechs", err.Field)
	assert.Equal(t, "hello", err.Command)
	assert.Contains(t, err.Message, "string")
	assert.True(t, IsTypeMismatch(err))
	assert.True(t, IsRequestError(err))
	assert.False(t, IsNotFound(err))
}

func TestFailedToParseError(t *testing.T) {
	cause := errors.New("empty user")
	err := NewFailedToParse("hello", "saslSupportedMechs", cause)

	assert.Equal(t, FailedToParse, err.Code)
	assert.True(t, IsFailedToParse(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "empty user")
}

func TestUserNotFoundError(t *testing.T) {
	cause := errors.New("user not found: admin.alice")
	err := NewUserNotFound("hello", "admin.alice", cause)

	assert.Equal(t, UserNotFound, err.Code)
	assert.Equal(t, "admin.alice", err.User)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRequestError(err))
	assert.ErrorIs(t, err, cause)
}

func TestLookupFailedError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewLookupFailed("hello", "admin.alice", cause)

	assert.Equal(t, InternalError, err.Code)
	assert.Contains(t, err.Message, "disk on fire")
	assert.False(t, IsNotFound(err))
}

func TestConfigValidationError(t *testing.T) {
	err := NewConfigValidationError("auth", "mechanisms", "unknown mechanism SCRAM-MD5")

	assert.Equal(t, InvalidOptions, err.Code)
	assert.Equal(t, "auth", err.Section)
	assert.Equal(t, "mechanisms", err.Key)
	assert.Contains(t, err.Message, "auth.mechanisms")
	assert.True(t, IsConfigError(err))
}

func TestErrorWrapping(t *testing.T) {
	base := NewUserNotFound("hello", "admin.alice", nil)
	wrapped := fmt.Errorf("processing command: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, UserNotFound, GetErrorCode(wrapped))

	var lookupErr *LookupError
	assert.True(t, errors.As(wrapped, &lookupErr))
	assert.Equal(t, "admin.alice", lookupErr.User)

	var cmdErr *CommandError
	assert.True(t, errors.As(wrapped, &cmdErr))
	assert.Equal(t, UserNotFound, cmdErr.Code)
}

func TestGetErrorCodeForPlainError(t *testing.T) {
	assert.Equal(t, 0, GetErrorCode(errors.New("plain")))
	assert.Equal(t, 0, GetErrorCode(nil))
	assert.False(t, IsNotFound(nil))
}
