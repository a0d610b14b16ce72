package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTimeSlot = errors.New("time slot must be in HH:MM format (00:00-23:59)")
	ErrInvalidDate     = errors.New("date must be an ISO 8601 date")
	ErrDateInPast      = errors.New("booking date must be today or in the future")
)

// ParseTimeSlot проверяет строку слота "HH:MM" (24 часа) и возвращает часы и минуты.
func ParseTimeSlot(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, ErrInvalidTimeSlot
	}
	hour, ok1 := twoDigits(s[0], s[1])
	minute, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || hour > 23 || minute > 59 {
		return 0, 0, ErrInvalidTimeSlot
	}
	return hour, minute, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// DateOnly отбрасывает время суток, оставляя полночь в UTC.
// Дата берётся в той зоне, в которой задано t.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate принимает "2006-01-02" или RFC 3339 и возвращает календарную дату.
// Для RFC 3339 берётся дата в указанном смещении, без перевода в UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOnly(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOnly(t), nil
	}
	return time.Time{}, ErrInvalidDate
}

// Today возвращает сегодняшнюю дату для now в зоне loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return DateOnly(now)
}

// CheckNotPast сравнивает только даты: сегодня допустимо, вчера — нет.
func CheckNotPast(date, now time.Time, loc *time.Location) error {
	if DateOnly(date).Before(Today(now, loc)) {
		return ErrDateInPast
	}
	return nil
}

// FormatSlot форматирует слот для сообщений: "Tuesday, 10.06.2025, 10:00".
func FormatSlot(date time.Time, timeSlot string) string {
	return fmt.Sprintf("%s, %s, %s", date.Weekday(), date.Format("02.01.2006"), timeSlot)
}
