package parking

import (
	"time"
)

// Classification of a monitored slot against its expected booking.
type Classification string

const (
	ClassUnmanaged   Classification = "unmanaged"
	ClassBookedEmpty Classification = "booked_empty"
	ClassCorrect     Classification = "correct"
	ClassWrong       Classification = "wrong"
)

type Observation struct {
	Slot       int       `json:"slot"`
	Plate      string    `json:"plate"`
	Confidence float64   `json:"confidence"`
	ObservedAt time.Time `json:"observed_at"`
}

// Booking is one active reservation row from the datastore.
// Plate is already normalized (uppercase alphanumeric).
type Booking struct {
	Slot   int
	Plate  string
	Email  string
	Status string
}

type SlotState struct {
	Slot           int            `json:"slot"`
	Expected       string         `json:"expected,omitempty"`
	Observed       string         `json:"observed,omitempty"`
	Classification Classification `json:"classification"`
}

// NotificationKey identifies the at-most-once-until-rearm dedup ledger entry.
type NotificationKey struct {
	Plate          string
	Slot           int
	Classification Classification
}

// Alert carries the full context handed to the notification dispatcher.
type Alert struct {
	Key           NotificationKey
	Expected      string // occupant expected in the slot, set for wrong parking
	BookedSlot    int    // intruder's own booked slot, 0 when unknown
	HasBookedSlot bool
	ObservedAt    time.Time
}

type GateCommand string

const (
	CmdOpenEntrance  GateCommand = "OPEN_ENTRANCE"
	CmdCloseEntrance GateCommand = "CLOSE_ENTRANCE"
	CmdOpenExit      GateCommand = "OPEN_EXIT"
	CmdCloseExit     GateCommand = "CLOSE_EXIT"
)

type GateEvent string

const (
	EventNone           GateEvent = ""
	EventIRDetected     GateEvent = "IR_DETECTED"
	EventIRExitDetected GateEvent = "IR_EXIT_DETECTED"
)

// ParseGateEvent decodes one line read from the hardware link. Anything that
// is not a known event maps to EventNone; the link never produces errors
// from garbage input.
func ParseGateEvent(line string) GateEvent {
	switch GateEvent(line) {
	case EventIRDetected:
		return EventIRDetected
	case EventIRExitDetected:
		return EventIRExitDetected
	default:
		return EventNone
	}
}

// DetectionPayload is the push-ingest form: cameras that run their own
// recognition post detections here instead of being polled.
type DetectionPayload struct {
	CameraID   string                 `json:"camera_id"`
	Role       string                 `json:"role"` // "slots", "entry" or "exit"
	Slot       int                    `json:"slot,omitempty"`
	Plate      string                 `json:"plate"`
	Confidence float64                `json:"confidence"`
	EventTime  time.Time              `json:"event_time"`
	RawPayload map[string]interface{} `json:"raw_payload,omitempty"`
}

// EventRecord is one append-only audit row.
type EventRecord struct {
	ID             int64
	Kind           string // "classification", "notification", "gate", "security"
	Slot           int
	Plate          string
	Classification Classification
	Detail         map[string]interface{}
	EventTime      time.Time
}

const (
	EventKindClassification = "classification"
	EventKindNotification   = "notification"
	EventKindGate           = "gate"
	EventKindSecurity       = "security"
)
