package jobber

import (
	"errors"
	"fmt"
)

// AuthError is fatal: a missing, revoked or rejected credential. The caller
// must abort the run rather than retry, since retrying cannot succeed.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth rejected (%d): %s", e.Status, e.Message)
	}
	return "auth rejected: " + e.Message
}

// ThrottleError reports an insufficient point budget. It carries the
// server-side throttle telemetry so the caller can compute how long to wait
// before retrying the same page.
type ThrottleError struct {
	Status        *ThrottleStatus
	RequestedCost float64
}

func (e *ThrottleError) Error() string {
	if e.Status != nil {
		return fmt.Sprintf("throttled: need %.0f points, %.0f available (restore %.0f/s)",
			e.RequestedCost, e.Status.CurrentlyAvailable, e.Status.RestoreRate)
	}
	return "throttled"
}

// TransientError wraps network failures and 5xx responses; safe to retry
// within the walk's error budget.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// SchemaError marks an undecodable or unexpectedly shaped response. Provider
// versioning drift is the usual cause, so it is retried like a transient.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return "unexpected response shape: " + e.Message
}

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsThrottleError(err error) bool {
	var target *ThrottleError
	return errors.As(err, &target)
}

// IsRecoverable reports whether the error may succeed on retry: throttles,
// transport faults and schema drift. Auth rejections are not recoverable.
func IsRecoverable(err error) bool {
	var throttle *ThrottleError
	var transient *TransientError
	var schema *SchemaError
	return errors.As(err, &throttle) || errors.As(err, &transient) || errors.As(err, &schema)
}
