package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/counselling-platform/internal/model"
)

type BookingRepository interface {
	// Создать бронь, если слот свободен. Проверка и вставка — одна транзакция.
	Create(ctx context.Context, booking *model.Booking, event *model.BookingEvent) error
	// Получить бронь по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Сменить статус с проверкой текущего статуса и версии (compare-and-swap).
	UpdateStatus(ctx context.Context, upd StatusUpdate) (*model.Booking, error)
	// Список броней по фильтру с пагинацией.
	List(ctx context.Context, filter BookingFilter, limit, offset int) ([]model.Booking, int64, error)
}

// StatusUpdate — параметры перехода статуса.
type StatusUpdate struct {
	BookingID    uuid.UUID
	CounsellorID uuid.UUID

	// Ожидаемое состояние строки; если оно изменилось, запись не выполняется.
	FromStatus  model.BookingStatus
	FromVersion int64

	ToStatus   model.BookingStatus
	AdminNotes *string

	ActorID   uuid.UUID
	ActorRole model.Role
}

type BookingFilter struct {
	StudentID    *uuid.UUID
	CounsellorID *uuid.UUID
	Status       model.BookingStatus
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking, event *model.BookingEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		err := activeSlotQuery(tx, booking.CounsellorID, booking.Day(), booking.TimeSlot).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if active > 0 {
			return ErrSlotTaken
		}

		// Параллельный запрос мог пройти ту же проверку; тогда вставку отклонит индекс.
		if err := insertBooking(tx, booking); err != nil {
			return err
		}

		if event != nil {
			event.BookingID = booking.ID
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("insert booking event: %w", err)
			}
		}
		return nil
	})
}

func insertBooking(tx *gorm.DB, booking *model.Booking) error {
	if err := tx.Create(booking).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func activeSlotQuery(tx *gorm.DB, counsellorID uuid.UUID, date time.Time, timeSlot string) *gorm.DB {
	return tx.Model(&model.Booking{}).
		Where("counsellor_id = ?", counsellorID).
		Where("booking_date = ?", model.NewDate(date)).
		Where("time_slot = ?", timeSlot).
		Where("status IN ?", model.ActiveStatuses)
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) UpdateStatus(ctx context.Context, upd StatusUpdate) (*model.Booking, error) {
	var updated model.Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		values := map[string]any{
			"status":     upd.ToStatus,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}
		if upd.AdminNotes != nil {
			values["admin_notes"] = *upd.AdminNotes
		}

		res := tx.Model(&model.Booking{}).
			Where("id = ?", upd.BookingID).
			Where("status = ?", upd.FromStatus).
			Where("version = ?", upd.FromVersion).
			Updates(values)
		if res.Error != nil {
			return fmt.Errorf("update booking status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		// Счётчик сессий меняется в той же транзакции, что и статус:
		// повторный вызов упрётся в терминальный статус и до инкремента не дойдёт.
		if upd.ToStatus == model.BookingStatusCompleted {
			res := tx.Model(&model.Counsellor{}).
				Where("id = ?", upd.CounsellorID).
				UpdateColumn("total_sessions", gorm.Expr("total_sessions + 1"))
			if res.Error != nil {
				return fmt.Errorf("increment total sessions: %w", res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("increment total sessions: counsellor %s: %w", upd.CounsellorID, ErrNotFound)
			}
		}

		event := &model.BookingEvent{
			BookingID:  upd.BookingID,
			EventType:  model.EventTypeBookingStatusChanged,
			ActorID:    upd.ActorID,
			ActorRole:  upd.ActorRole,
			FromStatus: upd.FromStatus,
			ToStatus:   upd.ToStatus,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("insert booking event: %w", err)
		}

		return tx.First(&updated, "id = ?", upd.BookingID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *GormBookingRepository) List(
	ctx context.Context,
	filter BookingFilter,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if filter.StudentID != nil {
		q = q.Where("student_id = ?", *filter.StudentID)
	}
	if filter.CounsellorID != nil {
		q = q.Where("counsellor_id = ?", *filter.CounsellorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("booking_date DESC").Order("time_slot DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
