package httpapi

import (
	"time"

	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
)

type CreateBookingRequest struct {
	CounsellorID string `json:"counsellorId" binding:"required"`
	ServiceType  string `json:"serviceType" binding:"required"`
	Date         string `json:"date" binding:"required"` // ISO 8601 date или RFC 3339
	TimeSlot     string `json:"timeSlot" binding:"required"`
	Notes        string `json:"notes"`
}

type UpdateStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	AdminNotes *string `json:"adminNotes"`
}

type RegisterCounsellorRequest struct {
	Specializations []string `json:"specializations" binding:"required"`
	Experience      int      `json:"experience"`
	Bio             string   `json:"bio"`
	Qualifications  []string `json:"qualifications"`
	HourlyRate      float64  `json:"hourlyRate"`
}

type VerifyCounsellorRequest struct {
	IsVerified *bool `json:"isVerified" binding:"required"`
}

// Envelope — общий формат ответа.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func toPagination[T any](p calendar.Page[T]) *Pagination {
	return &Pagination{
		Page:       p.Page,
		Limit:      p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
}

type BookingResponse struct {
	ID           string `json:"id"`
	StudentID    string `json:"studentId"`
	CounsellorID string `json:"counsellorId"`
	ServiceType  string `json:"serviceType"`
	Date         string `json:"date"`
	TimeSlot     string `json:"timeSlot"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	AdminNotes   string `json:"adminNotes,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type BookingEventResponse struct {
	ID         string `json:"id"`
	EventType  string `json:"eventType"`
	ActorID    string `json:"actorId"`
	ActorRole  string `json:"actorRole"`
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus"`
	CreatedAt  string `json:"createdAt"`
}

type CounsellorResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"userId"`
	Specializations []string `json:"specializations"`
	Experience      int      `json:"experience"`
	Bio             string   `json:"bio,omitempty"`
	Qualifications  []string `json:"qualifications"`
	IsVerified      bool     `json:"isVerified"`
	Rating          float64  `json:"rating"`
	TotalSessions   int64    `json:"totalSessions"`
	TotalReviews    int64    `json:"totalReviews"`
	HourlyRate      float64  `json:"hourlyRate"`
}

func ToBookingResponse(b *model.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID.String(),
		StudentID:    b.StudentID.String(),
		CounsellorID: b.CounsellorID.String(),
		ServiceType:  string(b.ServiceType),
		Date:         b.Day().Format(time.DateOnly),
		TimeSlot:     b.TimeSlot,
		Status:       string(b.Status),
		Notes:        b.Notes,
		AdminNotes:   b.AdminNotes,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ToBookingEventResponse(e *model.BookingEvent) BookingEventResponse {
	return BookingEventResponse{
		ID:         e.ID.String(),
		EventType:  string(e.EventType),
		ActorID:    e.ActorID.String(),
		ActorRole:  string(e.ActorRole),
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ToCounsellorResponse(c *model.Counsellor) CounsellorResponse {
	specs := make([]string, 0, len(c.Specializations))
	for _, s := range c.Specializations {
		specs = append(specs, string(s))
	}
	quals := []string(c.Qualifications)
	if quals == nil {
		quals = []string{}
	}
	return CounsellorResponse{
		ID:              c.ID.String(),
		UserID:          c.UserID.String(),
		Specializations: specs,
		Experience:      c.Experience,
		Bio:             c.Bio,
		Qualifications:  quals,
		IsVerified:      c.IsVerified,
		Rating:          c.Rating,
		TotalSessions:   c.TotalSessions,
		TotalReviews:    c.TotalReviews,
		HourlyRate:      c.HourlyRate,
	}
}
