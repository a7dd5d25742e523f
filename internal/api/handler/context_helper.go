package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"dinayojana/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

// MustGetDepartmentID 从 Gin 上下文中安全提取 department_id。
func MustGetDepartmentID(c *gin.Context) (string, bool) {
	return mustGetString(c, "department_id")
}

// caller 当前登录用户的身份三元组
type caller struct {
	UserID       string
	Role         string
	DepartmentID string
}

// mustGetCaller 一次性提取 user_id、role、department_id
func mustGetCaller(c *gin.Context) (caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return caller{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return caller{}, false
	}
	deptID, ok := MustGetDepartmentID(c)
	if !ok {
		return caller{}, false
	}
	return caller{UserID: userID, Role: role, DepartmentID: deptID}, true
}

// getTokenMeta 读取当前 Token 的 jti 与过期时间，缺失时返回零值
func getTokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	expiresAt, _ := exp.(time.Time)
	return jti, expiresAt
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
