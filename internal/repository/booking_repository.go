package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parkgate-service/internal/domain/parking"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type Plate struct {
	ID         int64  `gorm:"primaryKey"`
	Number     string `gorm:"not null"`
	Normalized string `gorm:"not null;uniqueIndex"`
	Country    *string
	Region     *string
	CreatedAt  time.Time
}

type Vehicle struct {
	ID        int64 `gorm:"primaryKey"`
	PlateID   *int64
	Email     *string
	Make      *string
	Model     *string
	Color     *string
	Notes     *string
	CreatedAt time.Time
}

type Booking struct {
	ID        int64 `gorm:"primaryKey"`
	SlotIndex int   `gorm:"not null"`
	PlateID   *int64
	Email     *string
	Status    string `gorm:"not null"`
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
}

type ParkingEvent struct {
	ID             int64  `gorm:"primaryKey"`
	Kind           string `gorm:"not null"`
	SlotIndex      *int
	Plate          *string
	Classification *string
	Detail         datatypes.JSONMap
	EventTime      time.Time `gorm:"not null"`
	CreatedAt      time.Time
}

type bookingRow struct {
	SlotIndex  int
	Normalized string
	Email      *string
}

// ActiveBookings returns the current slot assignments: one row per booking
// with status 'active', plate already normalized. Ordering matches the
// datastore's booking lists so the first active booking per slot wins.
func (r *BookingRepository) ActiveBookings(ctx context.Context) ([]parking.Booking, error) {
	var rows []bookingRow
	err := r.db.WithContext(ctx).
		Table("bookings").
		Select("bookings.slot_index, plates.normalized, bookings.email").
		Joins("JOIN plates ON bookings.plate_id = plates.id").
		Where("bookings.status = ?", "active").
		Order("bookings.slot_index, bookings.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	bookings := make([]parking.Booking, 0, len(rows))
	for _, row := range rows {
		b := parking.Booking{
			Slot:   row.SlotIndex,
			Plate:  strings.ToUpper(row.Normalized),
			Status: "active",
		}
		if row.Email != nil {
			b.Email = *row.Email
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// VehicleEmail looks up the secondary vehicle registry, used when a plate
// has no active booking carrying an email.
func (r *BookingRepository) VehicleEmail(ctx context.Context, normalized string) (string, error) {
	var vehicle Vehicle
	err := r.db.WithContext(ctx).
		Joins("JOIN plates ON vehicles.plate_id = plates.id").
		Where("plates.normalized = ?", normalized).
		First(&vehicle).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if vehicle.Email == nil {
		return "", nil
	}
	return *vehicle.Email, nil
}

func (r *BookingRepository) GetOrCreatePlate(ctx context.Context, normalized, original string) (int64, error) {
	var plate Plate
	err := r.db.WithContext(ctx).Where("normalized = ?", normalized).First(&plate).Error
	if err == nil {
		return plate.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	plate = Plate{
		Number:     original,
		Normalized: normalized,
		CreatedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&plate).Error; err != nil {
		return 0, err
	}
	return plate.ID, nil
}

func (r *BookingRepository) RecordEvent(ctx context.Context, rec *parking.EventRecord) error {
	dbEvent := ParkingEvent{
		Kind:      rec.Kind,
		EventTime: rec.EventTime,
		CreatedAt: time.Now(),
	}
	if rec.Slot != 0 {
		dbEvent.SlotIndex = &rec.Slot
	}
	if rec.Plate != "" {
		plate := rec.Plate
		dbEvent.Plate = &plate
	}
	if rec.Classification != "" {
		cls := string(rec.Classification)
		dbEvent.Classification = &cls
	}
	if len(rec.Detail) > 0 {
		dbEvent.Detail = datatypes.JSONMap(rec.Detail)
	}

	if err := r.db.WithContext(ctx).Create(&dbEvent).Error; err != nil {
		return err
	}

	rec.ID = dbEvent.ID
	return nil
}

func (r *BookingRepository) FindEvents(ctx context.Context, kind, plate *string, from, to *time.Time, limit, offset int) ([]ParkingEvent, error) {
	query := r.db.WithContext(ctx).Model(&ParkingEvent{})

	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	if plate != nil {
		query = query.Where("plate = ?", *plate)
	}
	if from != nil {
		query = query.Where("event_time >= ?", *from)
	}
	if to != nil {
		query = query.Where("event_time <= ?", *to)
	}

	query = query.Order("event_time DESC")

	if limit > 0 {
		if limit > 100 {
			limit = 100
		}
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []ParkingEvent
	err := query.Find(&events).Error
	return events, err
}
