package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dinayojana/internal/dto"
	"dinayojana/internal/service"
	pkgerrors "dinayojana/pkg/errors"
	"dinayojana/pkg/response"
)

// IntakeHandler 排课对话 HTTP 处理器
type IntakeHandler struct {
	intakeSvc service.IntakeService
}

// NewIntakeHandler 创建 IntakeHandler
func NewIntakeHandler(intakeSvc service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intakeSvc: intakeSvc}
}

// Start 开始新对话（覆盖进行中的对话）
// POST /api/v1/intake
func (h *IntakeHandler) Start(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.intakeSvc.Start(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// Get 当前对话快照
// GET /api/v1/intake
func (h *IntakeHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.intakeSvc.Get(c.Request.Context(), userID)
	if err != nil {
		handleIntakeError(c, err)
		return
	}
	response.OK(c, result)
}

// Answer 提交回答；非法输入返回 200 与 accepted=false
// POST /api/v1/intake/answers
func (h *IntakeHandler) Answer(c *gin.Context) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.intakeSvc.Answer(c.Request.Context(), cl.UserID, cl.DepartmentID, req.Input)
	if err != nil {
		handleIntakeError(c, err)
		return
	}
	response.OK(c, result)
}

// Advance 取出下一条待展示消息
// POST /api/v1/intake/advance
func (h *IntakeHandler) Advance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.intakeSvc.Advance(c.Request.Context(), userID)
	if err != nil {
		handleIntakeError(c, err)
		return
	}
	response.OK(c, result)
}

// Cancel 退出对话
// DELETE /api/v1/intake
func (h *IntakeHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.intakeSvc.Cancel(c.Request.Context(), userID); err != nil {
		handleIntakeError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleIntakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrSessionNotFound):
		response.NotFound(c, 12001, "对话不存在或已过期")
	case errors.Is(err, service.ErrIntakeFinished):
		response.Conflict(c, 12002, "对话已结束，请重新开始")
	case errors.Is(err, service.ErrPeriodsTooLarge):
		response.BadRequest(c, 12003, "每日节数超出上限，请重新输入")
	default:
		response.InternalError(c)
	}
}
