package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated       EventType = "booking_created"
	EventTypeBookingStatusChanged EventType = "booking_status_changed"
)

// booking_events — события аудита по брони.
// Пишутся в той же транзакции, что и изменение, которое они фиксируют.
type BookingEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	BookingID uuid.UUID `gorm:"type:uuid;not null;index"`
	EventType EventType `gorm:"type:varchar(64);not null;index"`

	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	ActorRole Role      `gorm:"type:varchar(32);not null"`

	FromStatus BookingStatus `gorm:"type:varchar(32)"`
	ToStatus   BookingStatus `gorm:"type:varchar(32);not null"`

	CreatedAt time.Time `gorm:"not null;index"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (e *BookingEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
