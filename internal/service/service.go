package service

import (
	"go.uber.org/zap"

	"dinayojana/config"
	"dinayojana/internal/repository"
	"dinayojana/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Intake    IntakeService
	Timetable TimetableService
	Review    ReviewService
	Export    ExportService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时 Logout 不做服务端吊销
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	store SessionStore,
	blacklist TokenBlacklist,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:      NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Intake:    NewIntakeService(&cfg.Intake, repo, store, logger),
		Timetable: NewTimetableService(repo, logger),
		Review:    NewReviewService(repo, logger),
		Export:    NewExportService(&cfg.Export, repo, logger),
	}
}
