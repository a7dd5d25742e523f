package dto

import "dinayojana/internal/timetable"

// ── 课表 DTO ──

// TimetableSummary 列表项
type TimetableSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Template  string `json:"template,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// TimetableResponse 课表详情
type TimetableResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Owner      *UserResponse      `json:"owner,omitempty"`
	Status     string             `json:"status"`
	Structure  timetable.Grid     `json:"structure"`
	Metadata   timetable.Metadata `json:"metadata"`
	ReviewedBy *string            `json:"reviewed_by,omitempty"`
	ReviewedAt string             `json:"reviewed_at,omitempty"`
	Version    int                `json:"version"`
	CreatedAt  string             `json:"created_at"`
}

// TimetableStats 各审核状态的课表数量
type TimetableStats struct {
	Total           int64 `json:"total"`
	PendingApproval int64 `json:"pending_approval"`
	Approved        int64 `json:"approved"`
	Rejected        int64 `json:"rejected"`
}

// ExportRequest 导出参数
type ExportRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=csv xlsx ics html"`
}

// ── 审核 DTO ──

// ReviewRequest 审核请求，驳回与要求修改时备注建议填写
type ReviewRequest struct {
	Comment string `json:"comment" binding:"max=500"`
	Version int    `json:"version" binding:"omitempty,min=1"`
}

// ModificationRequest 要求修改请求
type ModificationRequest struct {
	Comment string `json:"comment" binding:"required,max=500"`
}

// ReviewResponse 审核结果
type ReviewResponse struct {
	ReviewID    string `json:"review_id"`
	TimetableID string `json:"timetable_id"`
	Action      string `json:"action"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	Comment     string `json:"comment,omitempty"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
}
