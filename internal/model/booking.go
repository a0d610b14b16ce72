package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Максимальная длина заметок студента и администратора.
const MaxNotesLength = 500

// ActiveStatuses — статусы, которые занимают слот.
// completed тоже остаётся активным: прошедшая сессия слот не освобождает.
var ActiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusCompleted,
}

// Таблица допустимых переходов. Терминальные статусы переходов не имеют.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved:  {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusRejected:  {},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

// ParseBookingStatus проверяет, что строка — известный статус.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(s)
	_, ok := bookingTransitions[st]
	return st, ok
}

func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo сообщает, есть ли переход s -> to в таблице (без учёта роли).
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, n := range bookingTransitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// AllBookingStatuses возвращает статусы в порядке жизненного цикла.
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusApproved,
		BookingStatusRejected,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}

// bookings
type Booking struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	StudentID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	CounsellorID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ServiceType  ServiceType    `gorm:"type:varchar(32);not null"`
	Date         datatypes.Date `gorm:"column:booking_date;type:date;not null;index"`
	TimeSlot     string         `gorm:"type:varchar(5);not null"`
	Status       BookingStatus  `gorm:"type:varchar(32);not null;index"`
	Notes        string         `gorm:"type:varchar(500)"`
	AdminNotes   string         `gorm:"type:varchar(500)"`

	// Счётчик для compare-and-swap при смене статуса.
	Version int64 `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Counsellor *Counsellor `gorm:"foreignKey:CounsellorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// Day возвращает дату брони как time.Time (полночь).
func (b *Booking) Day() time.Time {
	return time.Time(b.Date)
}

// NewDate нормализует дату к полуночи UTC для колонки booking_date.
func NewDate(t time.Time) datatypes.Date {
	year, month, day := t.Date()
	return datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}
