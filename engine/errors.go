package engine

import (
	"errors"
	"fmt"
)

// Reason tags why an operation was rejected.
type Reason string

const (
	// ReasonNotFound: the referenced player or gift does not exist.
	ReasonNotFound Reason = "not_found"

	// ReasonUnauthorized: the caller is not the host, or not the current player.
	ReasonUnauthorized Reason = "unauthorized"

	// ReasonInvalidState: the operation is not legal in the current phase.
	ReasonInvalidState Reason = "invalid_state"

	// ReasonRuleViolation: a game rule was broken (gift already opened, steal
	// limit reached, steal-back, second gift registration, ...).
	ReasonRuleViolation Reason = "rule_violation"
)

// RejectedError is returned for every illegal move. It never accompanies a
// mutated party.
type RejectedError struct {
	Reason  Reason
	Message string
}

// Sentinels for errors.Is matching on the reason alone.
var (
	ErrNotFound      = &RejectedError{Reason: ReasonNotFound}
	ErrUnauthorized  = &RejectedError{Reason: ReasonUnauthorized}
	ErrInvalidState  = &RejectedError{Reason: ReasonInvalidState}
	ErrRuleViolation = &RejectedError{Reason: ReasonRuleViolation}
)

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "rejected: " + string(e.Reason)
	}
	return fmt.Sprintf("rejected: %s: %s", e.Reason, e.Message)
}

// Is matches any RejectedError with the same reason when target is one of the
// bare sentinels.
func (e *RejectedError) Is(target error) bool {
	t, ok := target.(*RejectedError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Message == "" || t.Message == e.Message)
}

// IsRejected reports whether err is an engine rejection.
// Uses errors.As to handle wrapped errors.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

func reject(reason Reason, format string, args ...any) error {
	return &RejectedError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
