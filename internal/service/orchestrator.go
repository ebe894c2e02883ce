package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/bookings"
	"parkgate-service/internal/domain/parking"
	"parkgate-service/internal/exitflow"
	"parkgate-service/internal/gate"
	"parkgate-service/internal/monitor"
	"parkgate-service/internal/notify"
	"parkgate-service/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ExitOutcome is the terminal state of one exit attempt.
type ExitOutcome string

const (
	ExitPassed        ExitOutcome = "passed"
	ExitSensorTimeout ExitOutcome = "sensor_timeout"
	ExitDenied        ExitOutcome = "denied"
	ExitUnauthorized  ExitOutcome = "unauthorized"
	ExitNoContact     ExitOutcome = "no_contact"
	ExitEmailFailed   ExitOutcome = "email_failed"
	ExitInCooldown    ExitOutcome = "cooldown"
)

// EventStore is the append-only audit sink. Write failures are logged and
// never interrupt gate or notification flow.
type EventStore interface {
	RecordEvent(ctx context.Context, rec *parking.EventRecord) error
}

// PlateRegistry persists plates seen on the push-ingest path so externally
// detected vehicles show up in the registry even before any booking.
type PlateRegistry interface {
	GetOrCreatePlate(ctx context.Context, normalized, original string) (int64, error)
}

// ObservationSource yields one observation per monitored slot per tick.
type ObservationSource interface {
	Observe(ctx context.Context) []parking.Observation
}

// PlateSource yields the plate currently visible to a gate camera, if any.
type PlateSource interface {
	CurrentPlate(ctx context.Context) (string, bool)
}

type Config struct {
	PublicBaseURL      string
	ConfirmTimeout     time.Duration
	EntrySensorTimeout time.Duration
	ExitSensorTimeout  time.Duration
	ExitCooldown       time.Duration
}

// Orchestrator drives the whole core: per-tick slot classification and
// notification, the entry gate fast path, and the asynchronous exit
// confirmation pipeline.
type Orchestrator struct {
	index       *bookings.Index
	tracker     *monitor.Tracker
	dispatcher  *notify.Dispatcher
	coordinator *exitflow.Coordinator
	entryGate   *gate.Controller
	exitGate    *gate.Controller
	store       EventStore
	plates      PlateRegistry
	cfg         Config
	log         zerolog.Logger

	exitMu       sync.Mutex
	exitInFlight map[string]bool
	lastExit     map[string]time.Time
}

func NewOrchestrator(
	index *bookings.Index,
	tracker *monitor.Tracker,
	dispatcher *notify.Dispatcher,
	coordinator *exitflow.Coordinator,
	entryGate *gate.Controller,
	exitGate *gate.Controller,
	store EventStore,
	plates PlateRegistry,
	cfg Config,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		index:        index,
		tracker:      tracker,
		dispatcher:   dispatcher,
		coordinator:  coordinator,
		entryGate:    entryGate,
		exitGate:     exitGate,
		store:        store,
		plates:       plates,
		cfg:          cfg,
		log:          log,
		exitInFlight: make(map[string]bool),
		lastExit:     make(map[string]time.Time),
	}
}

// MonitorTick classifies one tick's observations and dispatches whatever
// notifications fall due. Lookup and transport failures degrade to logged
// skips; the loop itself never fails.
func (o *Orchestrator) MonitorTick(ctx context.Context, observations []parking.Observation) {
	for _, obs := range observations {
		expected, _ := o.index.ExpectedPlate(obs.Slot)
		tr := o.tracker.Observe(obs.Slot, obs.Plate, expected, obs.ObservedAt)

		if tr.Changed && tr.State.Classification != parking.ClassUnmanaged {
			o.log.Info().
				Int("slot", obs.Slot).
				Str("classification", string(tr.State.Classification)).
				Str("observed", obs.Plate).
				Str("expected", expected).
				Msg("slot classification changed")
			o.recordEvent(ctx, &parking.EventRecord{
				Kind:           parking.EventKindClassification,
				Slot:           obs.Slot,
				Plate:          obs.Plate,
				Classification: tr.State.Classification,
				EventTime:      obs.ObservedAt,
			})
		}

		if tr.Alert != nil {
			o.handleAlert(ctx, *tr.Alert)
		}
	}
}

func (o *Orchestrator) handleAlert(ctx context.Context, alert parking.Alert) {
	if alert.Key.Classification == parking.ClassWrong {
		if slot, ok := o.index.SlotFor(alert.Key.Plate); ok {
			alert.BookedSlot = slot
			alert.HasBookedSlot = true
		}
	}

	email, ok := o.index.EmailFor(ctx, alert.Key.Plate)
	if !ok {
		if alert.Key.Classification == parking.ClassWrong {
			// Unregistered intruder: nobody to mail, log it as a
			// security event instead.
			o.log.Warn().
				Bool("security_event", true).
				Str("plate", alert.Key.Plate).
				Int("slot", alert.Key.Slot).
				Str("reserved_for", alert.Expected).
				Msg("unregistered vehicle in booked slot")
			o.recordEvent(ctx, &parking.EventRecord{
				Kind:           parking.EventKindSecurity,
				Slot:           alert.Key.Slot,
				Plate:          alert.Key.Plate,
				Classification: parking.ClassWrong,
				Detail:         map[string]interface{}{"reserved_for": alert.Expected},
				EventTime:      alert.ObservedAt,
			})
		} else {
			o.log.Info().Str("plate", alert.Key.Plate).Msg("no contact email on file, skipping notification")
		}
		return
	}

	if err := o.dispatcher.DispatchAlert(ctx, email, alert); err != nil {
		// No retry within the tick; the ledger entry stands, so this
		// alert will not fire again until the slot re-arms.
		o.log.Error().Err(err).Str("plate", alert.Key.Plate).Int("slot", alert.Key.Slot).Msg("alert dispatch failed")
		return
	}

	o.recordEvent(ctx, &parking.EventRecord{
		Kind:           parking.EventKindNotification,
		Slot:           alert.Key.Slot,
		Plate:          alert.Key.Plate,
		Classification: alert.Key.Classification,
		Detail:         map[string]interface{}{"to": email},
		EventTime:      alert.ObservedAt,
	})
}

// HandleEntry runs the entry fast path: exact active-booking match, then
// open the gate and hold it until the passage sensor fires.
func (o *Orchestrator) HandleEntry(ctx context.Context, plate string) (bool, error) {
	normalized := utils.NormalizePlate(plate)
	if normalized == "" {
		return false, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}

	if !o.index.IsActive(normalized) {
		o.log.Info().Str("plate", normalized).Msg("plate not found in active bookings, entry refused")
		return false, fmt.Errorf("%w: no active booking for %s", ErrUnauthorized, normalized)
	}

	o.log.Info().Str("plate", normalized).Msg("plate verified, opening entrance")
	passed, err := o.entryGate.OpenAndAwaitPassage(ctx,
		parking.CmdOpenEntrance, parking.CmdCloseEntrance,
		parking.EventIRDetected, o.cfg.EntrySensorTimeout)
	if err != nil {
		return false, err
	}

	o.recordEvent(ctx, &parking.EventRecord{
		Kind:      parking.EventKindGate,
		Plate:     normalized,
		Detail:    map[string]interface{}{"gate": "entry", "passed": passed},
		EventTime: time.Now(),
	})
	return passed, nil
}

// HandleExit runs the full exit pipeline for one detected plate. It is
// safe to call concurrently for different plates; a plate already in
// flight or in cooldown is skipped.
func (o *Orchestrator) HandleExit(ctx context.Context, plate string) (ExitOutcome, error) {
	normalized := utils.NormalizePlate(plate)
	if !utils.PlausiblePlate(normalized) {
		return "", fmt.Errorf("%w: implausible plate %q", ErrInvalidInput, plate)
	}

	if !o.beginExit(normalized) {
		return ExitInCooldown, nil
	}
	defer o.endExit(normalized)

	if !o.index.IsActive(normalized) {
		o.log.Warn().
			Bool("security_event", true).
			Str("plate", normalized).
			Msg("unauthorized vehicle at exit gate, gate remains closed")
		o.recordEvent(ctx, &parking.EventRecord{
			Kind:      parking.EventKindSecurity,
			Plate:     normalized,
			Detail:    map[string]interface{}{"gate": "exit"},
			EventTime: time.Now(),
		})
		return ExitUnauthorized, nil
	}

	email, ok := o.index.EmailFor(ctx, normalized)
	if !ok {
		o.log.Info().Str("plate", normalized).Msg("no contact email for authorized vehicle, gate remains closed")
		return ExitNoContact, nil
	}

	token := o.coordinator.Request(normalized, email)
	yesURL := fmt.Sprintf("%s/exit-response/%s/yes", o.cfg.PublicBaseURL, token)
	noURL := fmt.Sprintf("%s/exit-response/%s/no", o.cfg.PublicBaseURL, token)

	if err := o.dispatcher.DispatchExitConfirmation(ctx, email, normalized, yesURL, noURL, o.cfg.ConfirmTimeout); err != nil {
		o.coordinator.Abandon(token)
		o.log.Error().Err(err).Str("plate", normalized).Msg("confirmation email failed, gate remains closed")
		return ExitEmailFailed, nil
	}

	if !o.coordinator.Await(ctx, token, o.cfg.ConfirmTimeout) {
		o.log.Info().Str("plate", normalized).Msg("exit denied or unconfirmed, gate remains closed")
		return ExitDenied, nil
	}

	o.log.Info().Str("plate", normalized).Msg("exit confirmed, opening exit gate")
	passed, err := o.exitGate.OpenAndAwaitPassage(ctx,
		parking.CmdOpenExit, parking.CmdCloseExit,
		parking.EventIRExitDetected, o.cfg.ExitSensorTimeout)
	if err != nil {
		return "", err
	}

	o.recordEvent(ctx, &parking.EventRecord{
		Kind:      parking.EventKindGate,
		Plate:     normalized,
		Detail:    map[string]interface{}{"gate": "exit", "passed": passed},
		EventTime: time.Now(),
	})

	if passed {
		return ExitPassed, nil
	}
	return ExitSensorTimeout, nil
}

// beginExit claims the plate for one exit attempt unless one is already in
// flight or the cooldown dwell has not elapsed.
func (o *Orchestrator) beginExit(plate string) bool {
	o.exitMu.Lock()
	defer o.exitMu.Unlock()

	if o.exitInFlight[plate] {
		return false
	}
	if last, ok := o.lastExit[plate]; ok && time.Since(last) < o.cfg.ExitCooldown {
		return false
	}
	o.exitInFlight[plate] = true
	return true
}

func (o *Orchestrator) endExit(plate string) {
	o.exitMu.Lock()
	o.lastExit[plate] = time.Now()
	delete(o.exitInFlight, plate)
	o.exitMu.Unlock()
}

// RunSlotMonitor drives perception, classification and notification for
// all monitored slots until ctx is cancelled.
func (o *Orchestrator) RunSlotMonitor(ctx context.Context, source ObservationSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.MonitorTick(ctx, source.Observe(ctx))
		}
	}
}

// RunEntryWatch polls the entrance camera and opens the gate for booked
// vehicles. Entry failures only log; the watch never stops on them.
func (o *Orchestrator) RunEntryWatch(ctx context.Context, cam PlateSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			plate, ok := cam.CurrentPlate(ctx)
			if !ok {
				continue
			}
			if _, err := o.HandleEntry(ctx, plate); err != nil && !errors.Is(err, ErrUnauthorized) {
				o.log.Error().Err(err).Str("plate", plate).Msg("entry handling failed")
			}
		}
	}
}

// RunExitWatch polls the exit camera. Each candidate's confirmation wait
// runs in its own goroutine so simultaneous exit attempts do not serialize
// behind one pending email.
func (o *Orchestrator) RunExitWatch(ctx context.Context, cam PlateSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			plate, ok := cam.CurrentPlate(ctx)
			if !ok {
				continue
			}
			go func(p string) {
				if _, err := o.HandleExit(ctx, p); err != nil && !errors.Is(err, ErrInvalidInput) {
					o.log.Error().Err(err).Str("plate", p).Msg("exit handling failed")
				}
			}(plate)
		}
	}
}

// ProcessDetection routes an externally pushed detection by camera role.
func (o *Orchestrator) ProcessDetection(ctx context.Context, payload parking.DetectionPayload) error {
	if payload.Plate == "" {
		return fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if payload.EventTime.IsZero() {
		payload.EventTime = time.Now()
	}

	normalized := utils.NormalizePlate(payload.Plate)
	if normalized == "" {
		return fmt.Errorf("%w: plate cannot be empty after normalization", ErrInvalidInput)
	}

	if o.plates != nil {
		if _, err := o.plates.GetOrCreatePlate(ctx, normalized, payload.Plate); err != nil {
			// Registry write failure must not drop the detection.
			o.log.Error().Err(err).Str("plate", normalized).Msg("failed to persist plate")
		}
	}

	switch payload.Role {
	case "slots":
		if payload.Slot < 1 {
			return fmt.Errorf("%w: slot index is required for slot detections", ErrInvalidInput)
		}
		o.MonitorTick(ctx, []parking.Observation{{
			Slot:       payload.Slot,
			Plate:      normalized,
			Confidence: payload.Confidence,
			ObservedAt: payload.EventTime,
		}})
	case "entry":
		go func() {
			if _, err := o.HandleEntry(context.WithoutCancel(ctx), normalized); err != nil && !errors.Is(err, ErrUnauthorized) {
				o.log.Error().Err(err).Str("plate", normalized).Msg("entry handling failed")
			}
		}()
	case "exit":
		go func() {
			if _, err := o.HandleExit(context.WithoutCancel(ctx), normalized); err != nil {
				o.log.Error().Err(err).Str("plate", normalized).Msg("exit handling failed")
			}
		}()
	default:
		return fmt.Errorf("%w: unknown camera role %q", ErrInvalidInput, payload.Role)
	}
	return nil
}

// SlotStates exposes the tracker's view for the admin surface.
func (o *Orchestrator) SlotStates() []parking.SlotState {
	return o.tracker.States()
}

func (o *Orchestrator) recordEvent(ctx context.Context, rec *parking.EventRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordEvent(ctx, rec); err != nil {
		o.log.Error().Err(err).Str("kind", rec.Kind).Msg("failed to record audit event")
	}
}
