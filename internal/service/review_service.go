package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dinayojana/internal/dto"
	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	"dinayojana/internal/timetable"
	pkgerrors "dinayojana/pkg/errors"
)

// ReviewService HOD 审核业务接口
//
// 状态流转由 timetable.NextStatus 决定；要求修改只记录备注，不改变状态。
// 每次操作都追加一条 timetable_reviews 记录，与状态更新在同一事务内。
type ReviewService interface {
	ListPending(ctx context.Context, callerDeptID string) ([]dto.TimetableResponse, error)
	Approve(ctx context.Context, id string, req *dto.ReviewRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error)
	Reject(ctx context.Context, id string, req *dto.ReviewRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error)
	RequestModification(ctx context.Context, id string, req *dto.ModificationRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error)
}

type reviewService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewReviewService 创建 ReviewService 实例
func NewReviewService(repo *repository.Repository, logger *zap.Logger) ReviewService {
	return &reviewService{repo: repo, now: time.Now, logger: logger}
}

func (s *reviewService) ListPending(ctx context.Context, callerDeptID string) ([]dto.TimetableResponse, error) {
	list, err := s.repo.Timetable.ListByDepartmentAndStatus(ctx, callerDeptID, string(timetable.StatusPendingApproval))
	if err != nil {
		s.logger.Error("查询待审核课表失败", zap.String("department_id", callerDeptID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TimetableResponse, 0, len(list))
	for i := range list {
		resp, err := toTimetableResponse(&list[i])
		if err != nil {
			s.logger.Error("解析课表失败", zap.String("id", list[i].TimetableID), zap.Error(err))
			return nil, err
		}
		result = append(result, *resp)
	}
	return result, nil
}

func (s *reviewService) Approve(ctx context.Context, id string, req *dto.ReviewRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error) {
	return s.transition(ctx, id, timetable.EventApprove, req.Comment, req.Version, callerID, callerDeptID)
}

func (s *reviewService) Reject(ctx context.Context, id string, req *dto.ReviewRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error) {
	return s.transition(ctx, id, timetable.EventReject, req.Comment, req.Version, callerID, callerDeptID)
}

func (s *reviewService) RequestModification(ctx context.Context, id string, req *dto.ModificationRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error) {
	tt, err := s.loadForReview(ctx, id, callerID, callerDeptID)
	if err != nil {
		return nil, err
	}

	status := timetable.Status(tt.Status)
	if !timetable.CanReview(status) {
		return nil, fmt.Errorf("%w: %s -> %s", timetable.ErrInvalidTransition, status, model.ReviewActionRequestModification)
	}

	review := &model.TimetableReview{
		TimetableID: tt.TimetableID,
		ReviewerID:  callerID,
		Action:      model.ReviewActionRequestModification,
		FromStatus:  tt.Status,
		ToStatus:    tt.Status,
		Comment:     strings.TrimSpace(req.Comment),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Review.Create(ctx, review); err != nil {
		s.logger.Error("写入审核记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("HOD 要求修改课表",
		zap.String("timetable_id", tt.TimetableID),
		zap.String("reviewer_id", callerID),
	)
	return toReviewResponse(review, tt.Version), nil
}

// ── 内部方法 ──

func (s *reviewService) transition(ctx context.Context, id, event, comment string, version int, callerID, callerDeptID string) (*dto.ReviewResponse, error) {
	tt, err := s.loadForReview(ctx, id, callerID, callerDeptID)
	if err != nil {
		return nil, err
	}
	if version != 0 && version != tt.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	from := tt.Status
	to, err := timetable.NextStatus(ctx, timetable.Status(from), event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tt.Status = string(to)
	tt.ReviewedBy = &callerID
	tt.ReviewedAt = &now
	tt.UpdatedBy = &callerID

	review := &model.TimetableReview{
		TimetableID: tt.TimetableID,
		ReviewerID:  callerID,
		Action:      event,
		FromStatus:  from,
		ToStatus:    string(to),
		Comment:     strings.TrimSpace(comment),
		CreatedAt:   now,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timetable.Update(ctx, tt); err != nil {
			return err
		}
		return tx.Review.Create(ctx, review)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新课表审核状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课表审核完成",
		zap.String("timetable_id", tt.TimetableID),
		zap.String("reviewer_id", callerID),
		zap.String("from", from),
		zap.String("to", string(to)),
	)
	return toReviewResponse(review, tt.Version), nil
}

// loadForReview 仅本院系 HOD 可审核
func (s *reviewService) loadForReview(ctx context.Context, id, callerID, callerDeptID string) (*model.Timetable, error) {
	tt, err := loadVisibleTimetable(ctx, s.repo, s.logger, id, callerID, model.RoleHOD, callerDeptID)
	if err != nil {
		return nil, err
	}
	if tt.DepartmentID != callerDeptID {
		return nil, ErrTimetableForbidden
	}
	return tt, nil
}

func toReviewResponse(r *model.TimetableReview, version int) *dto.ReviewResponse {
	return &dto.ReviewResponse{
		ReviewID:    r.ReviewID,
		TimetableID: r.TimetableID,
		Action:      r.Action,
		FromStatus:  r.FromStatus,
		ToStatus:    r.ToStatus,
		Comment:     r.Comment,
		Version:     version,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}
