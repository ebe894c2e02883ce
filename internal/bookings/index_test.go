package bookings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkgate-service/internal/domain/parking"
)

type fakeSource struct {
	bookings      []parking.Booking
	vehicleEmails map[string]string
	err           error
}

func (f *fakeSource) ActiveBookings(_ context.Context) ([]parking.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bookings, nil
}

func (f *fakeSource) VehicleEmail(_ context.Context, plate string) (string, error) {
	return f.vehicleEmails[plate], nil
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	source := &fakeSource{bookings: []parking.Booking{
		{Slot: 3, Plate: "DL01AB1234", Email: "a@example.com"},
		{Slot: 7, Plate: "DL99ZZ0001", Email: "b@example.com"},
	}}
	idx := NewIndex(source, zerolog.Nop())
	require.NoError(t, idx.Refresh(context.Background()))

	plate, ok := idx.ExpectedPlate(3)
	require.True(t, ok)
	assert.Equal(t, "DL01AB1234", plate)

	slot, ok := idx.SlotFor("DL99ZZ0001")
	require.True(t, ok)
	assert.Equal(t, 7, slot)

	assert.True(t, idx.IsActive("DL01AB1234"))
	assert.False(t, idx.IsActive("MH12XY9999"))

	_, ok = idx.ExpectedPlate(5)
	assert.False(t, ok)
}

func TestRefreshFirstActiveBookingWins(t *testing.T) {
	source := &fakeSource{bookings: []parking.Booking{
		{Slot: 3, Plate: "DL01AB1234"},
		{Slot: 3, Plate: "DL99ZZ0001"},
	}}
	idx := NewIndex(source, zerolog.Nop())
	require.NoError(t, idx.Refresh(context.Background()))

	plate, _ := idx.ExpectedPlate(3)
	assert.Equal(t, "DL01AB1234", plate)
}

func TestRefreshNormalizesPlates(t *testing.T) {
	source := &fakeSource{bookings: []parking.Booking{
		{Slot: 3, Plate: "dl 01 ab 1234", Email: "a@example.com"},
	}}
	idx := NewIndex(source, zerolog.Nop())
	require.NoError(t, idx.Refresh(context.Background()))

	plate, ok := idx.ExpectedPlate(3)
	require.True(t, ok)
	assert.Equal(t, "DL01AB1234", plate)

	// Lookups are case-insensitive too.
	assert.True(t, idx.IsActive("dl01ab1234"))
}

func TestEmailForPrefersBookingThenRegistry(t *testing.T) {
	source := &fakeSource{
		bookings: []parking.Booking{
			{Slot: 3, Plate: "DL01AB1234", Email: "booking@example.com"},
			{Slot: 7, Plate: "DL99ZZ0001"},
		},
		vehicleEmails: map[string]string{
			"DL99ZZ0001": "registry@example.com",
		},
	}
	idx := NewIndex(source, zerolog.Nop())
	require.NoError(t, idx.Refresh(context.Background()))

	email, ok := idx.EmailFor(context.Background(), "DL01AB1234")
	require.True(t, ok)
	assert.Equal(t, "booking@example.com", email)

	email, ok = idx.EmailFor(context.Background(), "DL99ZZ0001")
	require.True(t, ok)
	assert.Equal(t, "registry@example.com", email)

	_, ok = idx.EmailFor(context.Background(), "MH12XY9999")
	assert.False(t, ok)
}

func TestFailedRefreshKeepsStaleSnapshot(t *testing.T) {
	source := &fakeSource{bookings: []parking.Booking{
		{Slot: 3, Plate: "DL01AB1234"},
	}}
	idx := NewIndex(source, zerolog.Nop())
	require.NoError(t, idx.Refresh(context.Background()))

	source.err = errors.New("datastore down")
	require.Error(t, idx.Refresh(context.Background()))

	// Previous snapshot still serves reads.
	plate, ok := idx.ExpectedPlate(3)
	require.True(t, ok)
	assert.Equal(t, "DL01AB1234", plate)
}

func TestEmptyIndexBeforeFirstRefresh(t *testing.T) {
	idx := NewIndex(&fakeSource{}, zerolog.Nop())
	_, ok := idx.ExpectedPlate(1)
	assert.False(t, ok)
	assert.False(t, idx.IsActive("DL01AB1234"))
}
