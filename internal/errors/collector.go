package errors

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RunError records one failed harness operation.
type RunError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (re *RunError) Error() string {
	return fmt.Sprintf("%s: %v", re.Operation, re.Err)
}

// Unwrap returns the recorded error.
func (re *RunError) Unwrap() error {
	return re.Err
}

// ErrorCollector collects failures across concurrent harness operations.
type ErrorCollector struct {
	errors []RunError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]RunError, 0),
	}
}

// Add records err for operation. Nil errors are ignored.
func (ec *ErrorCollector) Add(operation string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, RunError{Operation: operation, Err: err, Timestamp: time.Now()})
}

// GetErrors returns all collected errors
func (ec *ErrorCollector) GetErrors() []RunError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]RunError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// HasFatal reports whether any collected error is fatal.
func (ec *ErrorCollector) HasFatal() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	for _, re := range ec.errors {
		if IsFatal(re.Err) {
			return true
		}
	}
	return false
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// Err joins the collected errors, or returns nil when there are none.
func (ec *ErrorCollector) Err() error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	if len(ec.errors) == 0 {
		return nil
	}
	errs := make([]error, len(ec.errors))
	for i := range ec.errors {
		errs[i] = &ec.errors[i]
	}
	return errors.Join(errs...)
}

// Summary renders one line per collected error.
func (ec *ErrorCollector) Summary() string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var b strings.Builder
	for _, re := range ec.errors {
		fmt.Fprintf(&b, "%s %s\n", re.Timestamp.Format("15:04:05"), re.Error())
	}
	return b.String()
}
