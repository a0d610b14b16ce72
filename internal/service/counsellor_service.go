package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/repository"
)

const maxExperienceYears = 50

// CounsellorService ведёт справочник консультантов: регистрация профиля, поиск, верификация.
type CounsellorService struct {
	counsellorRepo repository.CounsellorRepository
	log            *zap.Logger
}

func NewCounsellorService(counsellorRepo repository.CounsellorRepository, log *zap.Logger) *CounsellorService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CounsellorService{counsellorRepo: counsellorRepo, log: log.Named("counsellor")}
}

type RegisterCounsellorInput struct {
	Specializations []string
	Experience      int
	Bio             string
	Qualifications  []string
	HourlyRate      float64
}

// RegisterCounsellor создаёт неверифицированный профиль для пользователя-консультанта.
func (s *CounsellorService) RegisterCounsellor(
	ctx context.Context,
	actor calendar.Actor,
	in RegisterCounsellorInput,
) (*model.Counsellor, error) {
	if !actor.IsCounsellor() {
		return nil, apperr.Forbidden("only counsellors can register a profile")
	}

	if len(in.Specializations) == 0 {
		return nil, apperr.Validation("at least one specialization is required")
	}
	specs := make([]model.ServiceType, 0, len(in.Specializations))
	seen := make(map[model.ServiceType]bool, len(in.Specializations))
	for _, raw := range in.Specializations {
		st, ok := model.ParseServiceType(raw)
		if !ok {
			return nil, apperr.Validation("unknown specialization %q", raw).With("specialization", raw)
		}
		if !seen[st] {
			seen[st] = true
			specs = append(specs, st)
		}
	}
	if in.Experience < 0 || in.Experience > maxExperienceYears {
		return nil, apperr.Validation("experience must be between 0 and %d years", maxExperienceYears)
	}
	if in.HourlyRate < 0 {
		return nil, apperr.Validation("hourly rate must not be negative")
	}

	c := &model.Counsellor{
		UserID:          actor.ID,
		Specializations: specs,
		Experience:      in.Experience,
		Bio:             in.Bio,
		Qualifications:  in.Qualifications,
		HourlyRate:      in.HourlyRate,
	}
	if c.Qualifications == nil {
		c.Qualifications = []string{}
	}

	if err := s.counsellorRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateProfile) {
			return nil, apperr.Conflict("counsellor profile already exists").With("userId", actor.ID.String())
		}
		return nil, apperr.Internal(err, "create counsellor")
	}

	s.log.Info("counsellor registered",
		zap.String("counsellor_id", c.ID.String()),
		zap.String("user_id", c.UserID.String()),
	)
	return c, nil
}

func (s *CounsellorService) GetCounsellor(ctx context.Context, id uuid.UUID) (*model.Counsellor, error) {
	c, err := s.counsellorRepo.GetByID(ctx, id)
	return c, mapCounsellorErr(err, id)
}

func (s *CounsellorService) GetCounsellorByUserID(ctx context.Context, userID uuid.UUID) (*model.Counsellor, error) {
	c, err := s.counsellorRepo.GetByUserID(ctx, userID)
	return c, mapCounsellorErr(err, userID)
}

type ListCounsellorsInput struct {
	Specialization string
	Page           int
	PageSize       int
}

// ListCounsellors — публичный справочник, только верифицированные профили.
func (s *CounsellorService) ListCounsellors(
	ctx context.Context,
	in ListCounsellorsInput,
) (calendar.Page[model.Counsellor], error) {
	verified := true
	filter := repository.CounsellorFilter{Verified: &verified}
	if in.Specialization != "" {
		st, ok := model.ParseServiceType(in.Specialization)
		if !ok {
			return calendar.Page[model.Counsellor]{}, apperr.Validation("unknown specialization %q", in.Specialization)
		}
		filter.Specialization = st
	}
	return s.list(ctx, filter, calendar.NormalizePage(in.Page, in.PageSize))
}

// ListPendingCounsellors — очередь на верификацию для администратора, новые заявки первыми.
func (s *CounsellorService) ListPendingCounsellors(
	ctx context.Context,
	actor calendar.Actor,
	page, pageSize int,
) (calendar.Page[model.Counsellor], error) {
	if !actor.IsAdmin() {
		return calendar.Page[model.Counsellor]{}, apperr.Forbidden("only admins can view pending counsellors")
	}
	unverified := false
	filter := repository.CounsellorFilter{Verified: &unverified, NewestFirst: true}
	return s.list(ctx, filter, calendar.NormalizePage(page, pageSize))
}

func (s *CounsellorService) list(
	ctx context.Context,
	filter repository.CounsellorFilter,
	req calendar.PageRequest,
) (calendar.Page[model.Counsellor], error) {
	items, total, err := s.counsellorRepo.List(ctx, filter, req.PageSize, req.Offset())
	if err != nil {
		return calendar.Page[model.Counsellor]{}, apperr.Internal(err, "list counsellors")
	}
	return calendar.NewPage(items, req, total), nil
}

// SetVerified — только для администратора.
func (s *CounsellorService) SetVerified(
	ctx context.Context,
	actor calendar.Actor,
	id uuid.UUID,
	verified bool,
) (*model.Counsellor, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can verify counsellors")
	}
	c, err := s.counsellorRepo.SetVerified(ctx, id, verified)
	if err != nil {
		return nil, mapCounsellorErr(err, id)
	}
	s.log.Info("counsellor verification changed",
		zap.String("counsellor_id", id.String()),
		zap.Bool("verified", verified),
		zap.String("admin_id", actor.ID.String()),
	)
	return c, nil
}

func mapCounsellorErr(err error, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("counsellor not found").With("id", id.String())
	default:
		return apperr.Internal(err, "load counsellor")
	}
}
