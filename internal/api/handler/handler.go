package handler

import "dinayojana/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Intake    *IntakeHandler
	Timetable *TimetableHandler
	Review    *ReviewHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Intake:    NewIntakeHandler(svc.Intake),
		Timetable: NewTimetableHandler(svc.Timetable, svc.Export),
		Review:    NewReviewHandler(svc.Review),
	}
}
