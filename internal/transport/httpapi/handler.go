package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/service"
)

type BookingSvc interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, actor calendar.Actor, target string, adminNotes *string) (*model.Booking, error)
	GetBooking(ctx context.Context, actor calendar.Actor, id uuid.UUID) (*model.Booking, error)
	ListBookings(ctx context.Context, actor calendar.Actor, in service.ListBookingsInput) (calendar.Page[model.Booking], error)
	ListBookingEvents(ctx context.Context, actor calendar.Actor, id uuid.UUID) ([]model.BookingEvent, error)
}

type CounsellorSvc interface {
	RegisterCounsellor(ctx context.Context, actor calendar.Actor, in service.RegisterCounsellorInput) (*model.Counsellor, error)
	GetCounsellor(ctx context.Context, id uuid.UUID) (*model.Counsellor, error)
	GetCounsellorByUserID(ctx context.Context, userID uuid.UUID) (*model.Counsellor, error)
	ListCounsellors(ctx context.Context, in service.ListCounsellorsInput) (calendar.Page[model.Counsellor], error)
	ListPendingCounsellors(ctx context.Context, actor calendar.Actor, page, pageSize int) (calendar.Page[model.Counsellor], error)
	SetVerified(ctx context.Context, actor calendar.Actor, id uuid.UUID, verified bool) (*model.Counsellor, error)
}

type Handler struct {
	bookings    BookingSvc
	counsellors CounsellorSvc
	log         *zap.Logger
}

func NewHandler(bookings BookingSvc, counsellors CounsellorSvc, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{bookings: bookings, counsellors: counsellors, log: log.Named("http")}
}

// POST /api/bookings (student)
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	counsellorID, err := uuid.Parse(req.CounsellorID)
	if err != nil {
		h.handleError(c, apperr.Validation("invalid counsellorId").With("counsellorId", req.CounsellorID))
		return
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		h.handleError(c, apperr.Validation("%s", err.Error()).With("date", req.Date))
		return
	}

	actor, _ := actorFrom(c)
	b, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		StudentID:    actor.ID,
		CounsellorID: counsellorID,
		ServiceType:  req.ServiceType,
		Date:         date,
		TimeSlot:     req.TimeSlot,
		Notes:        req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: "booking created", Data: ToBookingResponse(b)})
}

// GET /api/bookings?status=&page=&limit=
func (h *Handler) ListBookings(c *gin.Context) {
	actor, _ := actorFrom(c)
	page, err := h.bookings.ListBookings(c.Request.Context(), actor, service.ListBookingsInput{
		Status:   c.Query("status"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "limit"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]BookingResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToBookingResponse(&page.Items[i]))
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items, Pagination: toPagination(page)})
}

// GET /api/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	b, err := h.bookings.GetBooking(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: ToBookingResponse(b)})
}

// GET /api/bookings/:id/events
func (h *Handler) ListBookingEvents(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	events, err := h.bookings.ListBookingEvents(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	items := make([]BookingEventResponse, 0, len(events))
	for i := range events {
		items = append(items, ToBookingEventResponse(&events[i]))
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items})
}

// PATCH /api/bookings/:id/status
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	actor, _ := actorFrom(c)
	b, err := h.bookings.TransitionStatus(c.Request.Context(), id, actor, req.Status, req.AdminNotes)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Message: "booking status updated", Data: ToBookingResponse(b)})
}

// POST /api/counsellors (counsellor)
func (h *Handler) RegisterCounsellor(c *gin.Context) {
	var req RegisterCounsellorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	actor, _ := actorFrom(c)
	cs, err := h.counsellors.RegisterCounsellor(c.Request.Context(), actor, service.RegisterCounsellorInput{
		Specializations: req.Specializations,
		Experience:      req.Experience,
		Bio:             req.Bio,
		Qualifications:  req.Qualifications,
		HourlyRate:      req.HourlyRate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: "counsellor profile created", Data: ToCounsellorResponse(cs)})
}

// GET /api/counsellors?specialization=&page=&limit=
func (h *Handler) ListCounsellors(c *gin.Context) {
	page, err := h.counsellors.ListCounsellors(c.Request.Context(), service.ListCounsellorsInput{
		Specialization: c.Query("specialization"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "limit"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counsellorPage(page))
}

// GET /api/admin/counsellors/pending?page=&limit= (admin)
func (h *Handler) ListPendingCounsellors(c *gin.Context) {
	actor, _ := actorFrom(c)
	page, err := h.counsellors.ListPendingCounsellors(c.Request.Context(), actor, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counsellorPage(page))
}

// GET /api/counsellors/me (counsellor)
func (h *Handler) GetMyCounsellor(c *gin.Context) {
	actor, _ := actorFrom(c)
	cs, err := h.counsellors.GetCounsellorByUserID(c.Request.Context(), actor.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: ToCounsellorResponse(cs)})
}

// GET /api/counsellors/:id
func (h *Handler) GetCounsellor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	cs, err := h.counsellors.GetCounsellor(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: ToCounsellorResponse(cs)})
}

// PATCH /api/admin/counsellors/:id/verify (admin)
func (h *Handler) VerifyCounsellor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req VerifyCounsellorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	actor, _ := actorFrom(c)
	cs, err := h.counsellors.SetVerified(c.Request.Context(), actor, id, *req.IsVerified)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Message: "counsellor verification updated", Data: ToCounsellorResponse(cs)})
}

func counsellorPage(page calendar.Page[model.Counsellor]) Envelope {
	items := make([]CounsellorResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToCounsellorResponse(&page.Items[i]))
	}
	return Envelope{Success: true, Data: items, Pagination: toPagination(page)}
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleError(c, apperr.Validation("invalid id").With("id", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, Envelope{
		Success: false,
		Message: apperr.PublicMessage(err),
		Errors:  apperr.FieldsOf(err),
	})
}

// queryInt возвращает 0 для пустого или нечислового значения; дальше работают значения по умолчанию.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
