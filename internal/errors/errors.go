package errors

import (
	"errors"
	"fmt"

	"github.com/MojoAuth/connector-identity/pkg/canonical"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeConfiguration     = "E100"
	CodeStructural        = "E200"
	CodeDuplicateInstance = "E300"
	CodeStore             = "E400"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// DuplicateInstanceError is the cause carried by an E300 AppError.
type DuplicateInstanceError struct {
	InstanceID string
}

func (e *DuplicateInstanceError) Error() string {
	return fmt.Sprintf("duplicate connector instance %s", e.InstanceID)
}

func NewConfigurationError(msg string, cause error) *AppError {
	message := msg
	if cause != nil {
		message = fmt.Sprintf("%s: %s", msg, cause.Error())
	}

	return &AppError{
		Code:        CodeConfiguration,
		Message:     message,
		UserMessage: fmt.Sprintf("Invalid configuration. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewStructuralError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStructural,
		Message:     fmt.Sprintf("Structural error: %s", underlyingMsg),
		UserMessage: "The configuration can not be serialized",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewDuplicateInstanceError reports an instance id registered twice in one
// tracking window.
func NewDuplicateInstanceError(instanceID string) *AppError {
	return &AppError{
		Code: CodeDuplicateInstance,
		Message: fmt.Sprintf(
			"Duplicate connector instance %s: two instances share the same configuration. "+
				"Give each instance a distinct typePrefix or other distinguishing option",
			instanceID,
		),
		UserMessage: "Two connector instances share the same configuration",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       &DuplicateInstanceError{InstanceID: instanceID},
	}
}

func NewStoreError(op string, cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStore,
		Message:     fmt.Sprintf("Store error during %s: %s", op, underlyingMsg),
		UserMessage: "Temporary problem, try again later",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// DuplicateInstanceID returns the duplicated id when err reports one.
func DuplicateInstanceID(err error) (string, bool) {
	var dup *DuplicateInstanceError
	if errors.As(err, &dup) && dup != nil {
		return dup.InstanceID, true
	}

	return "", false
}

// Classify lifts serializer errors to AppErrors. AppErrors are returned as
// is; anything else yields nil.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	var cfgErr *canonical.ConfigError
	if errors.As(err, &cfgErr) {
		return NewConfigurationError("invalid serialization options", err)
	}

	var structErr *canonical.StructuralError
	if errors.As(err, &structErr) {
		return NewStructuralError(err)
	}

	return nil
}
