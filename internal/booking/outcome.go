package booking

import "time"

// SlotState tracks a slot through the run. Transitions are monotonic:
// Pending -> Reserved or Pending -> Abandoned, never back.
type SlotState int

const (
	StatePending SlotState = iota
	StateReserved
	StateAbandoned
)

func (s SlotState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReserved:
		return "reserved"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Outcome is the result of one reservation attempt. Success=false with a
// nil error means the slot was claimed by someone else between the scan
// and the click; that is expected, the slot stays pending.
type Outcome struct {
	Slot    Slot
	Success bool
	At      time.Time
}
