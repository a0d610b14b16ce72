package service

import (
	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
)

// Цели, которые консультант может выставить своей брони.
var counsellorTargets = map[model.BookingStatus]bool{
	model.BookingStatusApproved:  true,
	model.BookingStatusRejected:  true,
	model.BookingStatusCompleted: true,
}

// authorizeTransition проверяет права актора до проверки таблицы переходов.
// ownProfile — профиль консультанта актора (nil, если его нет или актор не консультант).
func authorizeTransition(
	actor calendar.Actor,
	b *model.Booking,
	ownProfile *model.Counsellor,
	target model.BookingStatus,
) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil

	case model.RoleStudent:
		if b.StudentID != actor.ID {
			return apperr.Forbidden("access denied")
		}
		if target != model.BookingStatusCancelled || b.Status != model.BookingStatusPending {
			return apperr.Forbidden("students can only cancel pending bookings").
				With("current", string(b.Status)).
				With("requested", string(target))
		}
		return nil

	case model.RoleCounsellor:
		if ownProfile == nil || ownProfile.ID != b.CounsellorID {
			return apperr.Forbidden("access denied")
		}
		if !counsellorTargets[target] {
			return apperr.Forbidden("counsellors can only approve, reject, or complete bookings").
				With("requested", string(target))
		}
		return nil

	default:
		return apperr.Forbidden("unknown role %q", actor.Role)
	}
}

// checkTransition сверяет пару статусов с таблицей.
func checkTransition(from, to model.BookingStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return invalidTransition(from, to)
}

func invalidTransition(from, to model.BookingStatus) error {
	return apperr.InvalidState("cannot change status from %s to %s", from, to).
		With("current", string(from)).
		With("requested", string(to))
}

// canView — правило доступа на чтение брони.
func canView(actor calendar.Actor, b *model.Booking, ownProfile *model.Counsellor) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		if b.StudentID == actor.ID {
			return nil
		}
	case model.RoleCounsellor:
		if ownProfile != nil && ownProfile.ID == b.CounsellorID {
			return nil
		}
	}
	return apperr.Forbidden("access denied")
}
