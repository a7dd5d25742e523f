package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"dinayojana/internal/dto"
	"dinayojana/internal/model"
	"dinayojana/internal/timetable"
	pkgerrors "dinayojana/pkg/errors"
)

func TestReviewService_ListPending(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())

	seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)
	seedTimetable(m, "user-2", "dept-1", timetable.StatusApproved)
	seedTimetable(m, "user-3", "dept-2", timetable.StatusPendingApproval)

	list, err := svc.ListPending(context.Background(), "dept-1")
	if err != nil {
		t.Fatalf("ListPending 应成功: %v", err)
	}
	if len(list) != 1 || list[0].Status != string(timetable.StatusPendingApproval) {
		t.Errorf("只应返回本院系待审核课表，实际 %d 条", len(list))
	}
}

func TestReviewService_Approve(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())
	tt := seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)

	resp, err := svc.Approve(context.Background(), tt.TimetableID, &dto.ReviewRequest{Comment: " ok "}, "hod-1", "dept-1")
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if resp.FromStatus != "pending_approval" || resp.ToStatus != "approved" {
		t.Errorf("状态流转不正确: %s -> %s", resp.FromStatus, resp.ToStatus)
	}
	if resp.Version != 2 || resp.Comment != "ok" {
		t.Errorf("期望 version=2 comment=ok，实际 %d %q", resp.Version, resp.Comment)
	}

	stored, _ := m.timetable.GetByID(context.Background(), tt.TimetableID)
	if stored.Status != "approved" || stored.ReviewedBy == nil || *stored.ReviewedBy != "hod-1" {
		t.Errorf("审核结果未保存: %+v", stored)
	}
	if len(m.review.reviews) != 1 || m.review.reviews[0].Action != model.ReviewActionApprove {
		t.Errorf("应追加一条审核记录，实际 %+v", m.review.reviews)
	}

	// 已审核的课表不能再次审核
	_, err = svc.Reject(context.Background(), tt.TimetableID, &dto.ReviewRequest{}, "hod-1", "dept-1")
	if !errors.Is(err, timetable.ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际: %v", err)
	}
	if len(m.review.reviews) != 1 {
		t.Error("非法操作不应写入审核记录")
	}
}

func TestReviewService_Reject(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())
	tt := seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)

	resp, err := svc.Reject(context.Background(), tt.TimetableID, &dto.ReviewRequest{Comment: "too many labs"}, "hod-1", "dept-1")
	if err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if resp.ToStatus != "rejected" {
		t.Errorf("期望 rejected，实际 %s", resp.ToStatus)
	}
}

func TestReviewService_OtherDepartmentForbidden(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())
	tt := seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)

	_, err := svc.Approve(context.Background(), tt.TimetableID, &dto.ReviewRequest{}, "hod-2", "dept-2")
	if !errors.Is(err, ErrTimetableForbidden) {
		t.Errorf("期望 ErrTimetableForbidden，实际: %v", err)
	}
}

func TestReviewService_StaleVersion(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())
	tt := seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)

	_, err := svc.Approve(context.Background(), tt.TimetableID, &dto.ReviewRequest{Version: 5}, "hod-1", "dept-1")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestReviewService_RequestModification(t *testing.T) {
	repo, m := newMockRepository()
	svc := NewReviewService(repo, zap.NewNop())
	tt := seedTimetable(m, "user-1", "dept-1", timetable.StatusPendingApproval)

	resp, err := svc.RequestModification(context.Background(), tt.TimetableID,
		&dto.ModificationRequest{Comment: "move Physics to mornings"}, "hod-1", "dept-1")
	if err != nil {
		t.Fatalf("RequestModification 应成功: %v", err)
	}
	if resp.FromStatus != resp.ToStatus || resp.ToStatus != "pending_approval" {
		t.Errorf("要求修改不应改变状态: %s -> %s", resp.FromStatus, resp.ToStatus)
	}

	stored, _ := m.timetable.GetByID(context.Background(), tt.TimetableID)
	if stored.Version != 1 {
		t.Errorf("要求修改不应更新版本，实际 %d", stored.Version)
	}
	if len(m.review.reviews) != 1 || m.review.reviews[0].Comment != "move Physics to mornings" {
		t.Errorf("应保存审核备注，实际 %+v", m.review.reviews)
	}
}
