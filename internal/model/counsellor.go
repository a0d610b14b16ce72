package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Специализация консультанта, она же тип услуги в брони.
type ServiceType string

const (
	ServiceTypeCareer      ServiceType = "career"
	ServiceTypeAdmission   ServiceType = "admission"
	ServiceTypeStudyAbroad ServiceType = "study_abroad"
	ServiceTypePlacement   ServiceType = "placement"
	ServiceTypeAcademic    ServiceType = "academic"
)

var serviceTypes = []ServiceType{
	ServiceTypeCareer,
	ServiceTypeAdmission,
	ServiceTypeStudyAbroad,
	ServiceTypePlacement,
	ServiceTypeAcademic,
}

func ParseServiceType(s string) (ServiceType, bool) {
	for _, st := range serviceTypes {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Counsellor — профиль консультанта.
// Привязан к внешней базе пользователей через UserID (1:1).
type Counsellor struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	Specializations datatypes.JSONSlice[ServiceType] `gorm:"not null"`
	Experience      int                              `gorm:"not null;default:0"`
	Bio             string                           `gorm:"type:text"`
	Qualifications  datatypes.JSONSlice[string]

	// Только верифицированный консультант принимает брони; флаг ставит админ.
	IsVerified bool `gorm:"not null;default:false;index"`

	Rating        float64 `gorm:"not null;default:0"`
	TotalSessions int64   `gorm:"not null;default:0"`
	TotalReviews  int64   `gorm:"not null;default:0"`
	HourlyRate    float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (c *Counsellor) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
