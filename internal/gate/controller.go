package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/domain/parking"
)

var ErrLinkUnavailable = errors.New("gate link unavailable")

// Controller runs open/wait/close sequences on one physical gate. Only one
// sequence may be in flight per gate; the close command is never skipped
// once an open was attempted, so a timed-out passage cannot leave the gate
// stuck open.
type Controller struct {
	name string
	link Link
	mu   sync.Mutex
	log  zerolog.Logger
}

// NewController wires a gate to its hardware link. A nil link marks the
// gate's control path as disabled for the run; every operation then fails
// hard without any physical action.
func NewController(name string, link Link, log zerolog.Logger) *Controller {
	return &Controller{
		name: name,
		link: link,
		log:  log,
	}
}

func (c *Controller) Available() bool {
	return c.link != nil
}

// CloseLink releases the hardware channel on shutdown.
func (c *Controller) CloseLink() error {
	if c.link == nil {
		return nil
	}
	return c.link.Close()
}

// OpenAndAwaitPassage sends openCmd, waits for the passage sensor event
// until timeout, then sends closeCmd unconditionally. The returned bool
// reports whether the sensor saw the vehicle pass before the deadline.
func (c *Controller) OpenAndAwaitPassage(ctx context.Context, openCmd, closeCmd parking.GateCommand, passage parking.GateEvent, timeout time.Duration) (bool, error) {
	if c.link == nil {
		return false, ErrLinkUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Sensor events that fired while the gate was closed are stale; they
	// must not count as this sequence's passage.
	c.drainEvents()

	if err := c.link.Send(openCmd); err != nil {
		// The open may still have reached the board; force a close
		// before reporting the failure.
		if closeErr := c.link.Send(closeCmd); closeErr != nil {
			c.log.Error().Err(closeErr).Str("gate", c.name).Msg("failed to send close after failed open")
		}
		return false, err
	}

	c.log.Info().Str("gate", c.name).Str("command", string(openCmd)).Msg("gate opened, waiting for passage sensor")

	passed := c.awaitEvent(ctx, passage, timeout)

	if err := c.link.Send(closeCmd); err != nil {
		return passed, err
	}

	if passed {
		c.log.Info().Str("gate", c.name).Msg("vehicle passed, gate closed")
	} else {
		c.log.Warn().Str("gate", c.name).Dur("timeout", timeout).Msg("no passage sensor event, gate force-closed")
	}
	return passed, nil
}

func (c *Controller) drainEvents() {
	for {
		select {
		case _, ok := <-c.link.Events():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (c *Controller) awaitEvent(ctx context.Context, want parking.GateEvent, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case event, ok := <-c.link.Events():
			if !ok {
				return false
			}
			if event == want {
				return true
			}
			// Some other sensor fired; keep waiting for ours.
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
