package repository

import (
	"context"

	"gorm.io/gorm"

	"dinayojana/internal/model"
)

// ReviewRepository 审核记录数据访问接口（仅追加）
type ReviewRepository interface {
	Create(ctx context.Context, review *model.TimetableReview) error
	ListByTimetable(ctx context.Context, timetableID string) ([]model.TimetableReview, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepo 创建 ReviewRepository 实例
func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Create(ctx context.Context, review *model.TimetableReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepo) ListByTimetable(ctx context.Context, timetableID string) ([]model.TimetableReview, error) {
	var list []model.TimetableReview
	err := r.db.WithContext(ctx).
		Where("timetable_id = ?", timetableID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
