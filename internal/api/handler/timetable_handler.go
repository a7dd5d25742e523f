package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dinayojana/internal/dto"
	"dinayojana/internal/service"
	"dinayojana/internal/timetable"
	pkgerrors "dinayojana/pkg/errors"
	"dinayojana/pkg/response"
)

// TimetableHandler 课表查询与导出 HTTP 处理器
type TimetableHandler struct {
	timetableSvc service.TimetableService
	exportSvc    service.ExportService
}

// NewTimetableHandler 创建 TimetableHandler
func NewTimetableHandler(timetableSvc service.TimetableService, exportSvc service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetableSvc: timetableSvc, exportSvc: exportSvc}
}

// ListMine 我的课表（新的在前）
// GET /api/v1/timetables
func (h *TimetableHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.timetableSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 课表详情
// GET /api/v1/timetables/:id
func (h *TimetableHandler) Get(c *gin.Context) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.timetableSvc.Get(c.Request.Context(), c.Param("id"), cl.UserID, cl.Role, cl.DepartmentID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, result)
}

// Stats 各状态课表数量
// GET /api/v1/timetables/stats
func (h *TimetableHandler) Stats(c *gin.Context) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.timetableSvc.Stats(c.Request.Context(), cl.UserID, cl.Role, cl.DepartmentID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Export 下载课表
// GET /api/v1/timetables/:id/export?format=csv|xlsx|ics|html
func (h *TimetableHandler) Export(c *gin.Context) {
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "不支持的导出格式")
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), c.Param("id"), req.Format, cl.UserID, cl.Role, cl.DepartmentID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// handleTimetableError 课表、审核与导出共用的错误映射
func handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 13001, "课表不存在")
	case errors.Is(err, service.ErrTimetableForbidden):
		response.Forbidden(c, 13002, "无权访问该课表")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13003, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, timetable.ErrInvalidTransition):
		response.Conflict(c, 13004, "当前状态不允许该审核操作")
	case errors.Is(err, service.ErrExportFormat):
		response.BadRequest(c, 14001, "不支持的导出格式")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 14002, "生成导出文件失败")
	default:
		response.InternalError(c)
	}
}
