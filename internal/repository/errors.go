package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// Слот уже занят активной бронью (предпроверка или уникальный индекс).
	ErrSlotTaken = errors.New("slot already booked")
	// Статус или версия брони изменились между чтением и записью.
	ErrStaleStatus = errors.New("booking was modified concurrently")
	// У пользователя уже есть профиль консультанта.
	ErrDuplicateProfile = errors.New("counsellor profile already exists")
)

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation распознаёт нарушение уникального индекса.
// С TranslateError драйверы отдают gorm.ErrDuplicatedKey; текст проверяем,
// если соединение открыто без трансляции ошибок.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
