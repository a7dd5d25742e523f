package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dinayojana/internal/dto"
	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	"dinayojana/internal/timetable"
)

var (
	ErrTimetableNotFound  = errors.New("课表不存在")
	ErrTimetableForbidden = errors.New("无权访问该课表")
)

// TimetableService 已保存课表的查询接口
type TimetableService interface {
	ListMine(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.TimetableSummary, int64, error)
	Get(ctx context.Context, id, callerID, callerRole, callerDeptID string) (*dto.TimetableResponse, error)
	// Stats 教师统计自己的课表，HOD 统计本院系的课表
	Stats(ctx context.Context, callerID, callerRole, callerDeptID string) (*dto.TimetableStats, error)
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger}
}

func (s *timetableService) ListMine(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.TimetableSummary, int64, error) {
	list, total, err := s.repo.Timetable.ListByOwner(ctx, userID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询课表列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TimetableSummary, 0, len(list))
	for i := range list {
		result = append(result, toTimetableSummary(&list[i]))
	}
	return result, total, nil
}

func (s *timetableService) Get(ctx context.Context, id, callerID, callerRole, callerDeptID string) (*dto.TimetableResponse, error) {
	tt, err := loadVisibleTimetable(ctx, s.repo, s.logger, id, callerID, callerRole, callerDeptID)
	if err != nil {
		return nil, err
	}
	return toTimetableResponse(tt)
}

func (s *timetableService) Stats(ctx context.Context, callerID, callerRole, callerDeptID string) (*dto.TimetableStats, error) {
	filter := repository.StatusCountFilter{OwnerID: callerID}
	if callerRole == model.RoleHOD {
		filter = repository.StatusCountFilter{DepartmentID: callerDeptID}
	}

	counts, err := s.repo.Timetable.CountByStatus(ctx, filter)
	if err != nil {
		s.logger.Error("统计课表状态失败", zap.Error(err))
		return nil, err
	}

	stats := &dto.TimetableStats{
		PendingApproval: counts[string(timetable.StatusPendingApproval)],
		Approved:        counts[string(timetable.StatusApproved)],
		Rejected:        counts[string(timetable.StatusRejected)],
	}
	stats.Total = stats.PendingApproval + stats.Approved + stats.Rejected
	return stats, nil
}

// ── 共用辅助 ──

// loadVisibleTimetable 读取课表并校验可见性：本人，或同院系的 HOD
func loadVisibleTimetable(
	ctx context.Context,
	repo *repository.Repository,
	logger *zap.Logger,
	id, callerID, callerRole, callerDeptID string,
) (*model.Timetable, error) {
	tt, err := repo.Timetable.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableNotFound
		}
		logger.Error("查询课表失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if tt.OwnerID == callerID {
		return tt, nil
	}
	if callerRole == model.RoleHOD && tt.DepartmentID == callerDeptID {
		return tt, nil
	}
	return nil, ErrTimetableForbidden
}

// decodeSchedule 从 JSONB 列还原课表结构，状态以数据库列为准
func decodeSchedule(tt *model.Timetable) (timetable.Schedule, error) {
	var sched timetable.Schedule
	if err := json.Unmarshal(tt.Structure, &sched.Structure); err != nil {
		return sched, err
	}
	if err := json.Unmarshal(tt.Metadata, &sched.Metadata); err != nil {
		return sched, err
	}
	sched.Metadata.Status = timetable.Status(tt.Status)
	return sched, nil
}

func toTimetableSummary(tt *model.Timetable) dto.TimetableSummary {
	return dto.TimetableSummary{
		ID:        tt.TimetableID,
		Name:      tt.Name,
		Template:  tt.Template,
		Status:    tt.Status,
		CreatedAt: tt.CreatedAt.Format(time.RFC3339),
	}
}

func toTimetableResponse(tt *model.Timetable) (*dto.TimetableResponse, error) {
	sched, err := decodeSchedule(tt)
	if err != nil {
		return nil, err
	}
	resp := &dto.TimetableResponse{
		ID:         tt.TimetableID,
		Name:       tt.Name,
		Status:     tt.Status,
		Structure:  sched.Structure,
		Metadata:   sched.Metadata,
		ReviewedBy: tt.ReviewedBy,
		Version:    tt.Version,
		CreatedAt:  tt.CreatedAt.Format(time.RFC3339),
	}
	if tt.ReviewedAt != nil {
		resp.ReviewedAt = tt.ReviewedAt.Format(time.RFC3339)
	}
	if tt.Owner != nil {
		resp.Owner = toUserResponse(tt.Owner)
	}
	return resp, nil
}
