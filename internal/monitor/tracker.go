package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/domain/parking"
)

// Transition is the outcome of one slot observation: the slot's new state
// plus, when the dedup ledger allows it, an alert that is due for dispatch.
type Transition struct {
	State   parking.SlotState
	Changed bool
	Alert   *parking.Alert
}

// Tracker classifies slot occupancy against expected bookings and owns the
// notification dedup ledger. At most one alert per (plate, slot,
// classification) key is due between successive booked-empty transitions.
type Tracker struct {
	mu     sync.Mutex
	ledger map[parking.NotificationKey]time.Time
	states map[int]parking.SlotState
	log    zerolog.Logger
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		ledger: make(map[parking.NotificationKey]time.Time),
		states: make(map[int]parking.SlotState),
		log:    log,
	}
}

// Observe processes one tick's observation for a slot. observed is the
// recognized plate ("" for empty), expected the booked plate ("" for an
// unmanaged slot). Ledger check and write happen under one lock, so no two
// alerts for the same key can ever be due concurrently.
func (t *Tracker) Observe(slot int, observed, expected string, at time.Time) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := parking.SlotState{
		Slot:     slot,
		Expected: expected,
		Observed: observed,
	}

	switch {
	case expected == "":
		state.Classification = parking.ClassUnmanaged
	case observed == "":
		state.Classification = parking.ClassBookedEmpty
	case observed == expected:
		state.Classification = parking.ClassCorrect
	default:
		state.Classification = parking.ClassWrong
	}

	prev, known := t.states[slot]
	t.states[slot] = state

	tr := Transition{
		State:   state,
		Changed: !known || prev.Classification != state.Classification || prev.Observed != state.Observed,
	}

	switch state.Classification {
	case parking.ClassBookedEmpty:
		// Slot emptied: forget everything notified for it so the next
		// occupancy episode is treated as fresh.
		t.rearmLocked(slot)
	case parking.ClassCorrect, parking.ClassWrong:
		key := parking.NotificationKey{
			Plate:          observed,
			Slot:           slot,
			Classification: state.Classification,
		}
		if _, sent := t.ledger[key]; !sent {
			t.ledger[key] = at
			tr.Alert = &parking.Alert{
				Key:        key,
				Expected:   expected,
				ObservedAt: at,
			}
		}
	}

	return tr
}

func (t *Tracker) rearmLocked(slot int) {
	cleared := 0
	for key := range t.ledger {
		if key.Slot == slot {
			delete(t.ledger, key)
			cleared++
		}
	}
	if cleared > 0 {
		t.log.Debug().Int("slot", slot).Int("cleared", cleared).Msg("slot emptied, notification tracking re-armed")
	}
}

// States returns a copy of all known slot states ordered by slot index.
func (t *Tracker) States() []parking.SlotState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]parking.SlotState, 0, len(t.states))
	for _, s := range t.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// LedgerSize is used by tests and the admin surface.
func (t *Tracker) LedgerSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ledger)
}

// Notified reports whether an alert for the key has already gone out in the
// current occupancy episode.
func (t *Tracker) Notified(key parking.NotificationKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ledger[key]
	return ok
}
