// Package errors defines the structured error taxonomy shared by the harness
// packages.
//
// Every failure surfaced by a harness call is a *HarnessError carrying a type,
// a stable code and a recoverability flag. Callers compare against the
// exported sentinels with errors.Is, which matches on type and code only, so
// errors enriched with context still compare equal to their sentinel.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeScope      ErrorType = "scope"
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeScheduler  ErrorType = "scheduler"
	ErrorTypeBrowser    ErrorType = "browser"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeDisposedScope        = "ERR_DISPOSED_SCOPE"
	ErrCodeNoMatch              = "ERR_NO_MATCH"
	ErrCodeInvalidOptionValue   = "ERR_INVALID_OPTION_VALUE"
	ErrCodeSchedulerUnavailable = "ERR_SCHEDULER_UNAVAILABLE"
	ErrCodeFlushLimit           = "ERR_FLUSH_LIMIT"
	ErrCodeInvalidSelector      = "ERR_INVALID_SELECTOR"
	ErrCodeForeignElement       = "ERR_FOREIGN_ELEMENT"
	ErrCodeBrowser              = "ERR_BROWSER"
	ErrCodeConfigInvalid        = "ERR_CONFIG_INVALID"
	ErrCodeInternalError        = "ERR_INTERNAL"
)

// HarnessError is a structured error type with context.
type HarnessError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *HarnessError) Is(target error) bool {
	var t *HarnessError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *HarnessError) WithContext(key string, value interface{}) *HarnessError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *HarnessError) WithComponent(component string) *HarnessError {
	e.Component = component

	return e
}

// WithCause records the underlying error.
func (e *HarnessError) WithCause(cause error) *HarnessError {
	e.Cause = cause

	return e
}

// Sentinels for errors.Is. Do not mutate; constructors below return fresh
// values that compare equal to these.
var (
	ErrDisposedScope        = &HarnessError{Type: ErrorTypeScope, Code: ErrCodeDisposedScope}
	ErrNoMatch              = &HarnessError{Type: ErrorTypeQuery, Code: ErrCodeNoMatch}
	ErrInvalidOptionValue   = &HarnessError{Type: ErrorTypeValidation, Code: ErrCodeInvalidOptionValue}
	ErrSchedulerUnavailable = &HarnessError{Type: ErrorTypeScheduler, Code: ErrCodeSchedulerUnavailable}
	ErrFlushLimit           = &HarnessError{Type: ErrorTypeScheduler, Code: ErrCodeFlushLimit}
	ErrInvalidSelector      = &HarnessError{Type: ErrorTypeQuery, Code: ErrCodeInvalidSelector}
	ErrForeignElement       = &HarnessError{Type: ErrorTypeValidation, Code: ErrCodeForeignElement}
	ErrBrowser              = &HarnessError{Type: ErrorTypeBrowser, Code: ErrCodeBrowser}
	ErrConfigInvalid        = &HarnessError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}
)

// Error creation functions

// NewDisposedScopeError reports use of a scope after it was torn down. It is
// never recoverable: it means a harness outlived its fixture.
func NewDisposedScopeError(scope string) *HarnessError {
	return (&HarnessError{
		Type:        ErrorTypeScope,
		Code:        ErrCodeDisposedScope,
		Message:     "harness is attempting to use a fixture that has already been destroyed",
		Recoverable: false,
	}).WithContext("scope", scope)
}

// NewNoMatchError reports that no element satisfied a harness query.
func NewNoMatchError(description string) *HarnessError {
	return &HarnessError{
		Type:        ErrorTypeQuery,
		Code:        ErrCodeNoMatch,
		Message:     "failed to find element matching one of the following queries: " + description,
		Recoverable: true,
	}
}

// NewInvalidOptionValueError reports a malformed value assigned to a typed
// component option.
func NewInvalidOptionValueError(option, message string) *HarnessError {
	return (&HarnessError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeInvalidOptionValue,
		Message:     message,
		Recoverable: false,
	}).WithContext("option", option)
}

// NewSchedulerUnavailableError reports that no stabilization mode can be
// selected because the scheduler primitive is missing.
func NewSchedulerUnavailableError(message string) *HarnessError {
	return &HarnessError{
		Type:        ErrorTypeScheduler,
		Code:        ErrCodeSchedulerUnavailable,
		Message:     message,
		Recoverable: false,
	}
}

// NewFlushLimitError reports a virtual-time flush that kept finding new work.
func NewFlushLimitError(limit int) *HarnessError {
	return (&HarnessError{
		Type:        ErrorTypeScheduler,
		Code:        ErrCodeFlushLimit,
		Message:     fmt.Sprintf("flush failed after reaching the limit of %d tasks; does your code use a polling timeout?", limit),
		Recoverable: false,
	}).WithContext("limit", limit)
}

// NewInvalidSelectorError wraps a selector compilation failure.
func NewInvalidSelectorError(selector string, cause error) *HarnessError {
	return (&HarnessError{
		Type:        ErrorTypeQuery,
		Code:        ErrCodeInvalidSelector,
		Message:     "invalid selector " + selector,
		Cause:       cause,
		Recoverable: false,
	}).WithContext("selector", selector)
}

// NewForeignElementError reports a TestElement created by another environment.
func NewForeignElementError(environment string) *HarnessError {
	return &HarnessError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeForeignElement,
		Message:     "this TestElement was not created by the " + environment,
		Recoverable: false,
	}
}

// NewBrowserError wraps a failure reported by the browser driver.
func NewBrowserError(op string, cause error) *HarnessError {
	return (&HarnessError{
		Type:        ErrorTypeBrowser,
		Code:        ErrCodeBrowser,
		Message:     "browser operation failed: " + op,
		Cause:       cause,
		Recoverable: false,
	}).WithContext("op", op)
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *HarnessError {
	return &HarnessError{
		Type:        ErrorTypeConfig,
		Code:        ErrCodeConfigInvalid,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *HarnessError {
	return &HarnessError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var he *HarnessError
	if errors.As(err, &he) {
		return he.Recoverable
	}

	return false
}

// IsFatal reports whether err signals a test-authoring bug or a missing
// platform primitive rather than a query miss.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDisposedScope) || errors.Is(err, ErrSchedulerUnavailable)
}

// Is forwards to the standard library so callers need only this package.
func Is(err, target error) bool { return errors.Is(err, target) }

// As forwards to the standard library so callers need only this package.
func As(err error, target any) bool { return errors.As(err, target) }

// New forwards to the standard library.
func New(text string) error { return errors.New(text) }
