package exitflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// pendingConfirmation lives from email dispatch until the driver responds
// or the wait times out, whichever comes first. The response surface may
// only flip resolved on an existing entry; it never creates or deletes.
type pendingConfirmation struct {
	plate     string
	email     string
	createdAt time.Time
	resolved  bool
	approved  bool
	done      chan struct{}
}

// Coordinator owns the pending-confirmation table. Tokens are single-use:
// once resolved or timed out the entry is gone and later responses are
// no-ops.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*pendingConfirmation
	log     zerolog.Logger
}

func NewCoordinator(log zerolog.Logger) *Coordinator {
	return &Coordinator{
		pending: make(map[string]*pendingConfirmation),
		log:     log,
	}
}

// Request registers a new pending confirmation and returns its token. The
// token is the only authorization the response links carry, so it must be
// unguessable; uuid v4 carries 122 random bits.
func (c *Coordinator) Request(plate, email string) string {
	token := uuid.NewString()

	c.mu.Lock()
	c.pending[token] = &pendingConfirmation{
		plate:     plate,
		email:     email,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
	c.mu.Unlock()

	c.log.Info().Str("plate", plate).Str("token", token).Msg("exit confirmation requested")
	return token
}

// Resolve records the driver's answer. Returns false when the token is
// absent, already resolved, or the answer is malformed; none of those
// change any state.
func (c *Coordinator) Resolve(token, answer string) bool {
	if answer != AnswerYes && answer != AnswerNo {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[token]
	if !ok || p.resolved {
		return false
	}

	p.resolved = true
	p.approved = answer == AnswerYes
	close(p.done)

	c.log.Info().Str("plate", p.plate).Str("answer", answer).Msg("exit confirmation resolved")
	return true
}

// Plate returns the vehicle a token belongs to, for the confirmation
// landing page.
func (c *Coordinator) Plate(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[token]
	if !ok {
		return "", false
	}
	return p.plate, true
}

// Await blocks until the token resolves or timeout elapses, then removes
// the entry. Timeout and cancellation both deny: the gate never opens on a
// missing confirmation.
func (c *Coordinator) Await(ctx context.Context, token string, timeout time.Duration) bool {
	c.mu.Lock()
	p, ok := c.pending[token]
	c.mu.Unlock()
	if !ok {
		return false
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	approved := false
	select {
	case <-p.done:
		c.mu.Lock()
		approved = p.approved
		delete(c.pending, token)
		c.mu.Unlock()
	case <-waitCtx.Done():
		c.mu.Lock()
		delete(c.pending, token)
		c.mu.Unlock()
		c.log.Warn().Str("plate", p.plate).Msg("confirmation wait timed out, gate remains closed")
	}

	return approved
}

// Abandon drops an unresolved token, used when the confirmation email
// could not be sent and nothing will ever await it.
func (c *Coordinator) Abandon(token string) {
	c.mu.Lock()
	delete(c.pending, token)
	c.mu.Unlock()
}

// PendingCount is used by tests and the admin surface.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
