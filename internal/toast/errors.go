package toast

import "fmt"

// DecodeError is returned when a response body cannot be decoded as a toast payload.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return "failed to decode toast response: " + e.Cause.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DisplayError is returned when a queued toast could not be bound to its element or widget.
// The toast is removed from the queue before the error is returned.
type DisplayError struct {
	ToastID   uint64
	ElementID string
	Message   string
	Cause     error
}

func (e *DisplayError) Error() string {
	msg := fmt.Sprintf("toast %d (%s): %s", e.ToastID, e.ElementID, e.Message)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
