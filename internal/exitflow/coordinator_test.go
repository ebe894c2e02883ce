package exitflow

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator() *Coordinator {
	return NewCoordinator(zerolog.Nop())
}

func TestRequestAndResolveYes(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")
	require.NotEmpty(t, token)

	plate, ok := c.Plate(token)
	require.True(t, ok)
	assert.Equal(t, "DL01AB1234", plate)

	assert.True(t, c.Resolve(token, AnswerYes))
	assert.True(t, c.Await(context.Background(), token, time.Second))
	assert.Equal(t, 0, c.PendingCount())
}

func TestResolveNoDeniesExit(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	require.True(t, c.Resolve(token, AnswerNo))
	assert.False(t, c.Await(context.Background(), token, time.Second))
}

func TestResolveIsSingleUse(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	assert.True(t, c.Resolve(token, AnswerYes))
	// Second resolution is a replay, must have no effect.
	assert.False(t, c.Resolve(token, AnswerNo))
	assert.True(t, c.Await(context.Background(), token, time.Second))

	// And after Await consumed the entry, nothing is left to resolve.
	assert.False(t, c.Resolve(token, AnswerYes))
}

func TestResolveUnknownTokenIsNoop(t *testing.T) {
	c := newTestCoordinator()
	assert.False(t, c.Resolve("not-a-token", AnswerYes))
	assert.Equal(t, 0, c.PendingCount())
}

func TestResolveMalformedAnswerIsNoop(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	assert.False(t, c.Resolve(token, "maybe"))
	assert.False(t, c.Resolve(token, ""))

	// Entry still unresolved, a proper answer still works.
	assert.True(t, c.Resolve(token, AnswerYes))
}

func TestAwaitTimesOutClosed(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	start := time.Now()
	approved := c.Await(context.Background(), token, 50*time.Millisecond)
	assert.False(t, approved)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 0, c.PendingCount())
}

func TestAwaitSeesLateResolution(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Resolve(token, AnswerYes)
	}()

	assert.True(t, c.Await(context.Background(), token, time.Second))
}

func TestAwaitUnknownTokenDenies(t *testing.T) {
	c := newTestCoordinator()
	assert.False(t, c.Await(context.Background(), "not-a-token", time.Second))
}

func TestAwaitHonorsContextCancel(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	assert.False(t, c.Await(ctx, token, time.Minute))
	assert.Equal(t, 0, c.PendingCount())
}

func TestAbandonDropsEntry(t *testing.T) {
	c := newTestCoordinator()
	token := c.Request("DL01AB1234", "driver@example.com")

	c.Abandon(token)
	assert.Equal(t, 0, c.PendingCount())
	assert.False(t, c.Resolve(token, AnswerYes))
}

func TestTokensAreUnique(t *testing.T) {
	c := newTestCoordinator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := c.Request("DL01AB1234", "driver@example.com")
		require.False(t, seen[token])
		seen[token] = true
	}
}
