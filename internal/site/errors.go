package site

import (
	"fmt"

	"wodbot/internal/booking"
)

// AuthError means the login sequence did not produce an authenticated
// session. It is fatal: the run aborts after closing the browser.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ScanError means the expected page structure was not found while
// checking a slot (layout change, date out of range). It is scoped to
// that slot: logged and counted against the slot's attempt bound.
type ScanError struct {
	Slot booking.Slot
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Slot, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ReservationError means the claim sequence failed structurally (as
// opposed to losing the race, which is a non-error outcome). Scoped to
// the slot, like ScanError.
type ReservationError struct {
	Slot booking.Slot
	Err  error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reserve %s: %v", e.Slot, e.Err)
}

func (e *ReservationError) Unwrap() error { return e.Err }
