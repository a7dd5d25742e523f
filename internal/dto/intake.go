package dto

import "dinayojana/internal/intake"

// ── 排课对话 DTO ──

// AnswerRequest 提交一条用户回复
type AnswerRequest struct {
	Input string `json:"input" binding:"max=1000"`
}

// IntakeResponse 会话快照
// Pending 为尚未投递的消息，客户端按 delay_ms 依次展示或调用 advance 逐条取出
type IntakeResponse struct {
	SessionID   string              `json:"session_id"`
	Phase       intake.Phase        `json:"phase"`
	Section     int                 `json:"section"`
	SectionName string              `json:"section_name,omitempty"`
	Step        int                 `json:"step"`
	Prompt      string              `json:"prompt,omitempty"`
	Record      intake.AnswerRecord `json:"record"`
	Messages    []intake.Message    `json:"messages"`
	Pending     []intake.Message    `json:"pending"`
	TimetableID string              `json:"timetable_id,omitempty"`
}

// AnswerResponse 提交回复的结果；非法输入 accepted=false，不视为错误
type AnswerResponse struct {
	Accepted bool           `json:"accepted"`
	Outcome  string         `json:"outcome"`
	Session  IntakeResponse `json:"session"`
}

// AdvanceResponse 取出的下一条待投递消息
type AdvanceResponse struct {
	Message   *intake.Message `json:"message,omitempty"`
	Remaining int             `json:"remaining"`
}
