package model

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ActiveSlotIndex — частичный уникальный индекс: не больше одной активной брони
// на (консультант, дата, слот). Отменённые и отклонённые в индекс не попадают.
const ActiveSlotIndex = "idx_bookings_active_slot"

// AutoMigrate выполняет миграцию всех сущностей ядра бронирования.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Counsellor{},
		&Booking{},
		&BookingEvent{},
	); err != nil {
		return err
	}

	// Предикат по статусам задаём явным DDL; синтаксис одинаков для Postgres и SQLite.
	quoted := make([]string, 0, len(ActiveStatuses))
	for _, st := range ActiveStatuses {
		quoted = append(quoted, "'"+string(st)+"'")
	}
	stmt := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON bookings (counsellor_id, booking_date, time_slot) WHERE status IN (%s)`,
		ActiveSlotIndex,
		strings.Join(quoted, ", "),
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", ActiveSlotIndex, err)
	}
	return nil
}
