package monitor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkgate-service/internal/domain/parking"
)

func newTestTracker() *Tracker {
	return NewTracker(zerolog.Nop())
}

func TestObserveClassification(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		observed string
		expected string
		want     parking.Classification
	}{
		{name: "no booking", observed: "DL01AB1234", expected: "", want: parking.ClassUnmanaged},
		{name: "no booking empty", observed: "", expected: "", want: parking.ClassUnmanaged},
		{name: "booked but empty", observed: "", expected: "DL01AB1234", want: parking.ClassBookedEmpty},
		{name: "correct", observed: "DL01AB1234", expected: "DL01AB1234", want: parking.ClassCorrect},
		{name: "wrong", observed: "DL99ZZ0001", expected: "DL01AB1234", want: parking.ClassWrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker()
			tr := tracker.Observe(3, tt.observed, tt.expected, now)
			assert.Equal(t, tt.want, tr.State.Classification)
		})
	}
}

func TestCorrectNotifiesExactlyOnce(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	tr := tracker.Observe(3, "DL01AB1234", "DL01AB1234", now)
	require.NotNil(t, tr.Alert)
	assert.Equal(t, parking.ClassCorrect, tr.Alert.Key.Classification)

	// Same vehicle staying put never re-notifies.
	for i := 0; i < 5; i++ {
		tr = tracker.Observe(3, "DL01AB1234", "DL01AB1234", now.Add(time.Duration(i)*time.Second))
		assert.Nil(t, tr.Alert)
	}
	assert.Equal(t, 1, tracker.LedgerSize())
}

func TestWrongNotifiesOncePerIntruder(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	tr := tracker.Observe(3, "DL99ZZ0001", "DL01AB1234", now)
	require.NotNil(t, tr.Alert)
	assert.Equal(t, parking.ClassWrong, tr.Alert.Key.Classification)
	assert.Equal(t, "DL01AB1234", tr.Alert.Expected)

	tr = tracker.Observe(3, "DL99ZZ0001", "DL01AB1234", now.Add(time.Second))
	assert.Nil(t, tr.Alert)

	// A different intruder in the same occupied episode is a fresh key.
	tr = tracker.Observe(3, "MH12XY9999", "DL01AB1234", now.Add(2*time.Second))
	require.NotNil(t, tr.Alert)
}

func TestBookedEmptyAndUnmanagedNeverNotify(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	assert.Nil(t, tracker.Observe(3, "", "DL01AB1234", now).Alert)
	assert.Nil(t, tracker.Observe(4, "DL01AB1234", "", now).Alert)
	assert.Equal(t, 0, tracker.LedgerSize())
}

func TestEmptyRearmsSlot(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	// CORRECT -> BOOKED_EMPTY -> CORRECT yields one alert per episode.
	tr := tracker.Observe(3, "DL01AB1234", "DL01AB1234", now)
	require.NotNil(t, tr.Alert)

	tr = tracker.Observe(3, "", "DL01AB1234", now.Add(time.Second))
	assert.Equal(t, parking.ClassBookedEmpty, tr.State.Classification)
	assert.Equal(t, 0, tracker.LedgerSize())

	tr = tracker.Observe(3, "DL01AB1234", "DL01AB1234", now.Add(2*time.Second))
	require.NotNil(t, tr.Alert)
}

func TestRearmOnlyClearsOwnSlot(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	require.NotNil(t, tracker.Observe(3, "DL01AB1234", "DL01AB1234", now).Alert)
	require.NotNil(t, tracker.Observe(7, "MH12XY9999", "MH12XY9999", now).Alert)

	tracker.Observe(3, "", "DL01AB1234", now.Add(time.Second))

	// Slot 7's ledger entry survives slot 3 emptying.
	assert.True(t, tracker.Notified(parking.NotificationKey{
		Plate: "MH12XY9999", Slot: 7, Classification: parking.ClassCorrect,
	}))
	assert.Nil(t, tracker.Observe(7, "MH12XY9999", "MH12XY9999", now.Add(2*time.Second)).Alert)
}

func TestChangedFlag(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	tr := tracker.Observe(3, "DL01AB1234", "DL01AB1234", now)
	assert.True(t, tr.Changed)

	tr = tracker.Observe(3, "DL01AB1234", "DL01AB1234", now.Add(time.Second))
	assert.False(t, tr.Changed)

	tr = tracker.Observe(3, "DL99ZZ0001", "DL01AB1234", now.Add(2*time.Second))
	assert.True(t, tr.Changed)
}

func TestStatesOrdered(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now()

	tracker.Observe(5, "", "AA11BB2222", now)
	tracker.Observe(2, "AA11BB2222", "", now)

	states := tracker.States()
	require.Len(t, states, 2)
	assert.Equal(t, 2, states[0].Slot)
	assert.Equal(t, 5, states[1].Slot)
}
