package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"dinayojana/internal/dto"
	"dinayojana/internal/service"
	"dinayojana/pkg/response"
)

// ReviewHandler HOD 审核 HTTP 处理器
type ReviewHandler struct {
	reviewSvc service.ReviewService
}

// NewReviewHandler 创建 ReviewHandler
func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

// ListPending 本院系待审核课表
// GET /api/v1/reviews/pending
func (h *ReviewHandler) ListPending(c *gin.Context) {
	deptID, ok := MustGetDepartmentID(c)
	if !ok {
		return
	}

	list, err := h.reviewSvc.ListPending(c.Request.Context(), deptID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// Approve 审核通过
// POST /api/v1/reviews/:id/approve
func (h *ReviewHandler) Approve(c *gin.Context) {
	h.decide(c, h.reviewSvc.Approve)
}

// Reject 驳回
// POST /api/v1/reviews/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	h.decide(c, h.reviewSvc.Reject)
}

// RequestModification 要求修改（仅记录备注）
// POST /api/v1/reviews/:id/request-modification
func (h *ReviewHandler) RequestModification(c *gin.Context) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reviewSvc.RequestModification(c.Request.Context(), c.Param("id"), &req, cl.UserID, cl.DepartmentID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, result)
}

type decideFunc = func(ctx context.Context, id string, req *dto.ReviewRequest, callerID, callerDeptID string) (*dto.ReviewResponse, error)

func (h *ReviewHandler) decide(c *gin.Context, fn decideFunc) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	result, err := fn(c.Request.Context(), c.Param("id"), &req, cl.UserID, cl.DepartmentID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, result)
}
