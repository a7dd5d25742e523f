package model

import (
	"time"

	"gorm.io/datatypes"
)

// Timetable 已生成的课表 — 对应 timetables
// Structure 与 Metadata 以 JSONB 保存 timetable.Schedule 的两部分
type Timetable struct {
	TimetableID  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"        json:"timetable_id"`
	OwnerID      string         `gorm:"type:uuid;not null;index"                              json:"owner_id"`
	DepartmentID string         `gorm:"type:uuid;not null"                                    json:"department_id"`
	Name         string         `gorm:"type:varchar(100);not null"                            json:"name"`
	Template     string         `gorm:"type:varchar(100);not null;default:''"                 json:"template"`
	Structure    datatypes.JSON `gorm:"type:jsonb;not null"                                   json:"structure"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;not null"                                   json:"metadata"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending_approval'"  json:"status"`
	ReviewedBy   *string        `gorm:"type:uuid"                                             json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time     `                                                             json:"reviewed_at,omitempty"`
	VersionedModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Timetable) TableName() string { return "timetables" }

// 审核动作
const (
	ReviewActionApprove             = "approve"
	ReviewActionReject              = "reject"
	ReviewActionRequestModification = "request_modification"
)

// TimetableReview 审核记录 — 对应 timetable_reviews（仅追加）
type TimetableReview struct {
	ReviewID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"review_id"`
	TimetableID string    `gorm:"type:uuid;not null;index"                       json:"timetable_id"`
	ReviewerID  string    `gorm:"type:uuid;not null"                             json:"reviewer_id"`
	Action      string    `gorm:"type:varchar(30);not null"                      json:"action"`
	FromStatus  string    `gorm:"type:varchar(20);not null"                      json:"from_status"`
	ToStatus    string    `gorm:"type:varchar(20);not null"                      json:"to_status"`
	Comment     string    `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (TimetableReview) TableName() string { return "timetable_reviews" }
