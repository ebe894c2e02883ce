package bookings

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/domain/parking"
	"parkgate-service/internal/utils"
)

// Source is the read-only booking datastore.
type Source interface {
	ActiveBookings(ctx context.Context) ([]parking.Booking, error)
	VehicleEmail(ctx context.Context, plate string) (string, error)
}

// snapshot is immutable once built; readers never see a partial refresh.
type snapshot struct {
	slotPlate  map[int]string
	plateSlot  map[string]int
	plateEmail map[string]string
}

// Index holds the latest booking snapshot and refreshes it on a polling
// cadence. A failed refresh keeps serving the previous snapshot.
type Index struct {
	source Source
	log    zerolog.Logger
	snap   atomic.Pointer[snapshot]
}

func NewIndex(source Source, log zerolog.Logger) *Index {
	idx := &Index{
		source: source,
		log:    log,
	}
	idx.snap.Store(&snapshot{
		slotPlate:  map[int]string{},
		plateSlot:  map[string]int{},
		plateEmail: map[string]string{},
	})
	return idx
}

// Refresh builds a new snapshot from the datastore and swaps it in whole.
// The first active booking per slot wins, matching the datastore's own
// booking-list ordering.
func (idx *Index) Refresh(ctx context.Context) error {
	active, err := idx.source.ActiveBookings(ctx)
	if err != nil {
		return err
	}

	next := &snapshot{
		slotPlate:  make(map[int]string, len(active)),
		plateSlot:  make(map[string]int, len(active)),
		plateEmail: make(map[string]string, len(active)),
	}
	for _, b := range active {
		plate := utils.NormalizePlate(b.Plate)
		if plate == "" {
			continue
		}
		if _, taken := next.slotPlate[b.Slot]; !taken {
			next.slotPlate[b.Slot] = plate
		}
		if _, seen := next.plateSlot[plate]; !seen {
			next.plateSlot[plate] = b.Slot
		}
		if b.Email != "" {
			if _, seen := next.plateEmail[plate]; !seen {
				next.plateEmail[plate] = b.Email
			}
		}
	}

	idx.snap.Store(next)
	idx.log.Debug().
		Int("active_bookings", len(active)).
		Int("booked_slots", len(next.slotPlate)).
		Msg("booking index refreshed")
	return nil
}

// Run polls the datastore until ctx is cancelled.
func (idx *Index) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := idx.Refresh(ctx); err != nil {
				idx.log.Error().Err(err).Msg("booking refresh failed, serving stale snapshot")
			}
		}
	}
}

// ExpectedPlate returns the plate booked into a slot, if any.
func (idx *Index) ExpectedPlate(slot int) (string, bool) {
	plate, ok := idx.snap.Load().slotPlate[slot]
	return plate, ok
}

// SlotFor returns the slot a plate holds an active booking for.
func (idx *Index) SlotFor(plate string) (int, bool) {
	slot, ok := idx.snap.Load().plateSlot[utils.NormalizePlate(plate)]
	return slot, ok
}

// IsActive reports whether the plate holds any active booking.
func (idx *Index) IsActive(plate string) bool {
	_, ok := idx.snap.Load().plateSlot[utils.NormalizePlate(plate)]
	return ok
}

// EmailFor resolves a contact address: active booking first, then the
// secondary vehicle registry.
func (idx *Index) EmailFor(ctx context.Context, plate string) (string, bool) {
	normalized := utils.NormalizePlate(plate)
	if email, ok := idx.snap.Load().plateEmail[normalized]; ok {
		return email, true
	}

	email, err := idx.source.VehicleEmail(ctx, normalized)
	if err != nil {
		idx.log.Error().Err(err).Str("plate", normalized).Msg("vehicle registry lookup failed")
		return "", false
	}
	if email == "" {
		return "", false
	}
	return email, true
}
