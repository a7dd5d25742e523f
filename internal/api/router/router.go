package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dinayojana/config"
	"dinayojana/internal/api/handler"
	"dinayojana/internal/api/middleware"
	"dinayojana/internal/model"
	"dinayojana/pkg/jwt"
	"dinayojana/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流与 Token 黑名单降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，按 IP 限流）
		loginLimit := middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, time.Minute)
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", loginLimit, h.Auth.Signup)
			auth.POST("/login", loginLimit, h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 排课对话（仅教师）
			intake := authorized.Group("/intake", middleware.RoleAuth(model.RoleTeacher))
			{
				intake.POST("", h.Intake.Start)
				intake.GET("", h.Intake.Get)
				intake.POST("/answers", h.Intake.Answer)
				intake.POST("/advance", h.Intake.Advance)
				intake.DELETE("", h.Intake.Cancel)
			}

			// 课表（Service 层校验归属与院系）
			timetables := authorized.Group("/timetables")
			{
				timetables.GET("", h.Timetable.ListMine)
				timetables.GET("/stats", h.Timetable.Stats)
				timetables.GET("/:id", h.Timetable.Get)
				timetables.GET("/:id/export", h.Timetable.Export)
			}

			// 审核（仅 HOD）
			reviews := authorized.Group("/reviews", middleware.RoleAuth(model.RoleHOD))
			{
				reviews.GET("/pending", h.Review.ListPending)
				reviews.POST("/:id/approve", h.Review.Approve)
				reviews.POST("/:id/reject", h.Review.Reject)
				reviews.POST("/:id/request-modification", h.Review.RequestModification)
			}
		}
	}

	return r
}

// healthCheck 存活检查，数据库不可达时返回 503
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
