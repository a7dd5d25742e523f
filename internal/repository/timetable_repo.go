package repository

import (
	"context"

	"gorm.io/gorm"

	"dinayojana/internal/model"
	pkgerrors "dinayojana/pkg/errors"
)

// TimetableRepository 课表数据访问接口
type TimetableRepository interface {
	Create(ctx context.Context, tt *model.Timetable) error
	GetByID(ctx context.Context, id string) (*model.Timetable, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]model.Timetable, int64, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	ListByDepartmentAndStatus(ctx context.Context, departmentID, status string) ([]model.Timetable, error)
	CountByStatus(ctx context.Context, filter StatusCountFilter) (map[string]int64, error)
	// Update 乐观锁更新审核字段，版本不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, tt *model.Timetable) error
}

// StatusCountFilter 状态统计范围，OwnerID 与 DepartmentID 至少填一个
type StatusCountFilter struct {
	OwnerID      string
	DepartmentID string
}

// timetableRepo TimetableRepository 的 GORM 实现
type timetableRepo struct {
	db *gorm.DB
}

// NewTimetableRepo 创建 TimetableRepository 实例
func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) Create(ctx context.Context, tt *model.Timetable) error {
	return r.db.WithContext(ctx).Create(tt).Error
}

func (r *timetableRepo) GetByID(ctx context.Context, id string) (*model.Timetable, error) {
	var tt model.Timetable
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("timetable_id = ?", id).
		First(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *timetableRepo) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]model.Timetable, int64, error) {
	var list []model.Timetable
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Timetable{}).Where("owner_id = ?", ownerID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// CountByOwner 统计用户已保存的课表数（含软删除，保证 "Timetable N" 编号不回退）
func (r *timetableRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&model.Timetable{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

func (r *timetableRepo) ListByDepartmentAndStatus(ctx context.Context, departmentID, status string) ([]model.Timetable, error) {
	var list []model.Timetable
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("department_id = ? AND status = ?", departmentID, status).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *timetableRepo) CountByStatus(ctx context.Context, filter StatusCountFilter) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}

	db := r.db.WithContext(ctx).Model(&model.Timetable{})
	if filter.OwnerID != "" {
		db = db.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.DepartmentID != "" {
		db = db.Where("department_id = ?", filter.DepartmentID)
	}

	if err := db.Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *timetableRepo) Update(ctx context.Context, tt *model.Timetable) error {
	oldVersion := tt.Version
	result := r.db.WithContext(ctx).
		Model(tt).
		Where("timetable_id = ? AND version = ?", tt.TimetableID, oldVersion).
		Updates(map[string]interface{}{
			"status":      tt.Status,
			"reviewed_by": tt.ReviewedBy,
			"reviewed_at": tt.ReviewedAt,
			"updated_by":  tt.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version = oldVersion + 1
	return nil
}
