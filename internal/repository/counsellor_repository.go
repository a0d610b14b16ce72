package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/counselling-platform/internal/model"
)

type CounsellorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Counsellor, error)
	// Профиль консультанта текущего пользователя.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Counsellor, error)
	Create(ctx context.Context, c *model.Counsellor) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*model.Counsellor, error)
	List(ctx context.Context, filter CounsellorFilter, limit, offset int) ([]model.Counsellor, int64, error)
}

type CounsellorFilter struct {
	// nil — без фильтра по верификации.
	Verified       *bool
	Specialization model.ServiceType

	// Очередь на верификацию: свежие заявки первыми.
	NewestFirst bool
}

type GormCounsellorRepository struct {
	db *gorm.DB
}

func NewGormCounsellorRepository(db *gorm.DB) *GormCounsellorRepository {
	return &GormCounsellorRepository{db: db}
}

func (r *GormCounsellorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Counsellor, error) {
	var c model.Counsellor
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &c, nil
}

func (r *GormCounsellorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Counsellor, error) {
	var c model.Counsellor
	if err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &c, nil
}

func (r *GormCounsellorRepository) Create(ctx context.Context, c *model.Counsellor) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProfile
		}
		return fmt.Errorf("insert counsellor: %w", err)
	}
	return nil
}

func (r *GormCounsellorRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*model.Counsellor, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Counsellor{}).
		Where("id = ?", id).
		Update("is_verified", verified)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormCounsellorRepository) List(
	ctx context.Context,
	filter CounsellorFilter,
	limit, offset int,
) ([]model.Counsellor, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Counsellor{})
	if filter.Verified != nil {
		q = q.Where("is_verified = ?", *filter.Verified)
	}
	if filter.Specialization != "" {
		// specializations хранится как JSON-массив строк; текстовый поиск работает и в Postgres, и в SQLite.
		q = q.Where("CAST(specializations AS TEXT) LIKE ?", `%"`+string(filter.Specialization)+`"%`)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if filter.NewestFirst {
		q = q.Order("created_at DESC")
	} else {
		q = q.Order("rating DESC").Order("created_at ASC")
	}

	var counsellors []model.Counsellor
	if err := q.Find(&counsellors).Error; err != nil {
		return nil, 0, err
	}
	return counsellors, total, nil
}
