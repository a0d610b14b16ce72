package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/repository"
)

// BookingService — ядро бронирования: допуск на слот и смена статусов.
type BookingService struct {
	bookingRepo    repository.BookingRepository
	counsellorRepo repository.CounsellorRepository
	eventRepo      repository.EventRepository

	log *zap.Logger
	now func() time.Time
	loc *time.Location
}

type Option func(*BookingService)

// WithClock подменяет источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// WithLocation задаёт зону, в которой считается "сегодня".
func WithLocation(loc *time.Location) Option {
	return func(s *BookingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	counsellorRepo repository.CounsellorRepository,
	eventRepo repository.EventRepository,
	log *zap.Logger,
	opts ...Option,
) *BookingService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &BookingService{
		bookingRepo:    bookingRepo,
		counsellorRepo: counsellorRepo,
		eventRepo:      eventRepo,
		log:            log.Named("booking"),
		now:            time.Now,
		loc:            time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateBookingInput struct {
	StudentID    uuid.UUID
	CounsellorID uuid.UUID
	ServiceType  string
	Date         time.Time
	TimeSlot     string
	Notes        string
}

// CreateBooking создаёт бронь в статусе pending, если слот свободен.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.StudentID == uuid.Nil {
		return nil, apperr.Validation("student id is required")
	}

	counsellor, err := s.counsellorRepo.GetByID(ctx, in.CounsellorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("counsellor not found").With("counsellorId", in.CounsellorID.String())
		}
		return nil, apperr.Internal(err, "load counsellor")
	}
	if !counsellor.IsVerified {
		return nil, apperr.InvalidState("this counsellor is not yet verified").
			With("counsellorId", counsellor.ID.String())
	}

	if err := calendar.CheckNotPast(in.Date, s.now(), s.loc); err != nil {
		return nil, apperr.Validation("%s", err.Error()).With("date", in.Date.Format(time.DateOnly))
	}
	if _, _, err := calendar.ParseTimeSlot(in.TimeSlot); err != nil {
		return nil, apperr.Validation("%s", err.Error()).With("timeSlot", in.TimeSlot)
	}
	serviceType, ok := model.ParseServiceType(in.ServiceType)
	if !ok {
		return nil, apperr.Validation("unknown service type %q", in.ServiceType).With("serviceType", in.ServiceType)
	}
	if utf8.RuneCountInString(in.Notes) > model.MaxNotesLength {
		return nil, apperr.Validation("notes must be at most %d characters", model.MaxNotesLength)
	}

	day := calendar.DateOnly(in.Date)
	b := &model.Booking{
		StudentID:    in.StudentID,
		CounsellorID: counsellor.ID,
		ServiceType:  serviceType,
		Date:         model.NewDate(day),
		TimeSlot:     in.TimeSlot,
		Status:       model.BookingStatusPending,
		Notes:        in.Notes,
	}
	event := &model.BookingEvent{
		EventType: model.EventTypeBookingCreated,
		ActorID:   in.StudentID,
		ActorRole: model.RoleStudent,
		ToStatus:  model.BookingStatusPending,
	}

	if err := s.bookingRepo.Create(ctx, b, event); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.log.Info("slot already taken",
				zap.String("counsellor_id", counsellor.ID.String()),
				zap.String("date", day.Format(time.DateOnly)),
				zap.String("time_slot", in.TimeSlot),
			)
			return nil, apperr.Conflict("this time slot is already booked").
				With("counsellorId", counsellor.ID.String()).
				With("date", day.Format(time.DateOnly)).
				With("timeSlot", in.TimeSlot)
		}
		return nil, apperr.Internal(err, "create booking")
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("student_id", b.StudentID.String()),
		zap.String("counsellor_id", b.CounsellorID.String()),
		zap.String("slot", calendar.FormatSlot(day, b.TimeSlot)),
	)
	return b, nil
}

// TransitionStatus переводит бронь в target от имени actor.
// Порядок проверок: статус известен, бронь есть, права, таблица переходов, запись.
func (s *BookingService) TransitionStatus(
	ctx context.Context,
	bookingID uuid.UUID,
	actor calendar.Actor,
	target string,
	adminNotes *string,
) (*model.Booking, error) {
	to, ok := model.ParseBookingStatus(target)
	if !ok {
		return nil, apperr.Validation("unknown booking status %q", target).With("requested", target)
	}

	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	profile, err := s.actorProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, b, profile, to); err != nil {
		return nil, err
	}
	if err := checkTransition(b.Status, to); err != nil {
		return nil, err
	}

	upd := repository.StatusUpdate{
		BookingID:    b.ID,
		CounsellorID: b.CounsellorID,
		FromStatus:   b.Status,
		FromVersion:  b.Version,
		ToStatus:     to,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
	}
	if actor.IsAdmin() && adminNotes != nil {
		if utf8.RuneCountInString(*adminNotes) > model.MaxNotesLength {
			return nil, apperr.Validation("admin notes must be at most %d characters", model.MaxNotesLength)
		}
		upd.AdminNotes = adminNotes
	}

	updated, err := s.bookingRepo.UpdateStatus(ctx, upd)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.staleTransition(ctx, b, to)
		}
		return nil, apperr.Internal(err, "update booking status")
	}

	s.log.Info("booking status changed",
		zap.String("booking_id", updated.ID.String()),
		zap.String("from", string(b.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID.String()),
		zap.String("actor_role", string(actor.Role)),
	)
	return updated, nil
}

// staleTransition строит ошибку для проигравшего гонку: перечитываем бронь и
// сообщаем статус, который видит хранилище сейчас.
func (s *BookingService) staleTransition(ctx context.Context, before *model.Booking, to model.BookingStatus) error {
	current, err := s.bookingRepo.GetByID(ctx, before.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("booking not found")
		}
		return apperr.Internal(err, "reload booking")
	}
	s.log.Info("concurrent status change lost",
		zap.String("booking_id", before.ID.String()),
		zap.String("expected", string(before.Status)),
		zap.String("observed", string(current.Status)),
		zap.String("requested", string(to)),
	)
	return invalidTransition(current.Status, to)
}

// GetBooking возвращает бронь, если актор имеет к ней доступ.
func (s *BookingService) GetBooking(ctx context.Context, actor calendar.Actor, id uuid.UUID) (*model.Booking, error) {
	b, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.actorProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, b, profile); err != nil {
		return nil, err
	}
	return b, nil
}

type ListBookingsInput struct {
	Status   string
	Page     int
	PageSize int
}

// ListBookings: студент видит свои брони, консультант — брони своего профиля, админ — все.
func (s *BookingService) ListBookings(
	ctx context.Context,
	actor calendar.Actor,
	in ListBookingsInput,
) (calendar.Page[model.Booking], error) {
	req := calendar.NormalizePage(in.Page, in.PageSize)

	var filter repository.BookingFilter
	if in.Status != "" {
		st, ok := model.ParseBookingStatus(in.Status)
		if !ok {
			return calendar.Page[model.Booking]{}, apperr.Validation("unknown booking status %q", in.Status)
		}
		filter.Status = st
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleStudent:
		id := actor.ID
		filter.StudentID = &id
	case model.RoleCounsellor:
		profile, err := s.actorProfile(ctx, actor)
		if err != nil {
			return calendar.Page[model.Booking]{}, err
		}
		if profile == nil {
			// Профиль ещё не создан, броней быть не может.
			return calendar.NewPage[model.Booking](nil, req, 0), nil
		}
		filter.CounsellorID = &profile.ID
	default:
		return calendar.Page[model.Booking]{}, apperr.Forbidden("unknown role %q", actor.Role)
	}

	items, total, err := s.bookingRepo.List(ctx, filter, req.PageSize, req.Offset())
	if err != nil {
		return calendar.Page[model.Booking]{}, apperr.Internal(err, "list bookings")
	}
	return calendar.NewPage(items, req, total), nil
}

// ListBookingEvents возвращает журнал переходов брони.
func (s *BookingService) ListBookingEvents(
	ctx context.Context,
	actor calendar.Actor,
	bookingID uuid.UUID,
) ([]model.BookingEvent, error) {
	if _, err := s.GetBooking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal(err, "list booking events")
	}
	if events == nil {
		events = []model.BookingEvent{}
	}
	return events, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("booking not found").With("bookingId", id.String())
		}
		return nil, apperr.Internal(err, "load booking")
	}
	return b, nil
}

// actorProfile возвращает профиль консультанта для актора-консультанта.
// Для остальных ролей и при отсутствии профиля — nil без ошибки.
func (s *BookingService) actorProfile(ctx context.Context, actor calendar.Actor) (*model.Counsellor, error) {
	if !actor.IsCounsellor() {
		return nil, nil
	}
	c, err := s.counsellorRepo.GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err, "load counsellor profile")
	}
	return c, nil
}
