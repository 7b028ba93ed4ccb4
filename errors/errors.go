package errors

import (
	"errors"
	"fmt"
)

// CommandError represents a fault raised while processing a command
type CommandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
	Cause   error  `json:"cause,omitempty"`
}

func (e *CommandError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s (%d) in %s: %s", CodeName(e.Code), e.Code, e.Command, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", CodeName(e.Code), e.Code, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

func (e *CommandError) As(target interface{}) bool {
	if cmdErr, ok := target.(**CommandError); ok {
		*cmdErr = e
		return true
	}
	return false
}

// Error codes
const (
	InternalError  = 1
	FailedToParse  = 9
	UserNotFound   = 11
	TypeMismatch   = 14
	InvalidOptions = 72
)

var codeNames = map[int]string{
	InternalError:  "InternalError",
	FailedToParse:  "FailedToParse",
	UserNotFound:   "UserNotFound",
	TypeMismatch:   "TypeMismatch",
	InvalidOptions: "InvalidOptions",
}

// CodeName returns the symbolic name of an error code
func CodeName(code int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return "UnknownError"
}

// Request Errors

// RequestError represents a malformed field in an inbound command
type RequestError struct {
	CommandError
	Field string `json:"field"`
}

func NewRequestError(code int, message, command, field string, cause error) *RequestError {
	return &RequestError{
		CommandError: CommandError{
			Code:    code,
			Message: message,
			Command: command,
			Cause:   cause,
		},
		Field: field,
	}
}

func NewTypeMismatch(command, field, expected, actual string) *RequestError {
	message := fmt.Sprintf("field '%s' must be of type %s, got %s", field, expected, actual)
	return NewRequestError(TypeMismatch, message, command, field, nil)
}

func NewFailedToParse(command, field string, cause error) *RequestError {
	message := fmt.Sprintf("could not parse field '%s': %v", field, cause)
	return NewRequestError(FailedToParse, message, command, field, cause)
}

func (e *RequestError) As(target interface{}) bool {
	if cmdErr, ok := target.(**CommandError); ok {
		*cmdErr = &e.CommandError
		return true
	}
	return false
}

// Lookup Errors

// LookupError represents a failure to resolve a principal
type LookupError struct {
	CommandError
	User string `json:"user"`
}

func NewLookupError(code int, message, command, user string, cause error) *LookupError {
	return &LookupError{
		CommandError: CommandError{
			Code:    code,
			Message: message,
			Command: command,
			Cause:   cause,
		},
		User: user,
	}
}

func NewUserNotFound(command, user string, cause error) *LookupError {
	return NewLookupError(UserNotFound, fmt.Sprintf("Could not find user \"%s\"", user), command, user, cause)
}

func NewLookupFailed(command, user string, cause error) *LookupError {
	message := fmt.Sprintf("failed to acquire user \"%s\": %v", user, cause)
	return NewLookupError(InternalError, message, command, user, cause)
}

func (e *LookupError) As(target interface{}) bool {
	if cmdErr, ok := target.(**CommandError); ok {
		*cmdErr = &e.CommandError
		return true
	}
	return false
}

// Configuration Errors

// ConfigError represents configuration-specific errors
type ConfigError struct {
	CommandError
	Section string `json:"section"`
	Key     string `json:"key,omitempty"`
}

func NewConfigError(message, section, key string, cause error) *ConfigError {
	return &ConfigError{
		CommandError: CommandError{
			Code:    InvalidOptions,
			Message: message,
			Cause:   cause,
		},
		Section: section,
		Key:     key,
	}
}

func NewConfigValidationError(section, key, reason string) *ConfigError {
	message := fmt.Sprintf("Configuration validation failed for %s.%s: %s", section, key, reason)
	return NewConfigError(message, section, key, nil)
}

func (e *ConfigError) As(target interface{}) bool {
	if cmdErr, ok := target.(**CommandError); ok {
		*cmdErr = &e.CommandError
		return true
	}
	return false
}

// Helper functions for common error checking

// IsRequestError checks if an error is a RequestError
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// IsConfigError checks if an error is a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsNotFound checks if an error indicates the user was not found
func IsNotFound(err error) bool {
	return GetErrorCode(err) == UserNotFound
}

// IsTypeMismatch checks if an error indicates a field had the wrong type
func IsTypeMismatch(err error) bool {
	return GetErrorCode(err) == TypeMismatch
}

// IsFailedToParse checks if an error indicates a field could not be parsed
func IsFailedToParse(err error) bool {
	return GetErrorCode(err) == FailedToParse
}

// GetErrorCode returns the error code if the error is a CommandError
func GetErrorCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return 0
}
