//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	"dinayojana/pkg/database"
	pkgerrors "dinayojana/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=dinayojana password=dinayojana_password dbname=dinayojana_test sslmode=disable TimeZone=Asia/Kolkata"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupTestData 创建院系与教师并返回清理函数
func setupTestData(t *testing.T) (dept *model.Department, user *model.User, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	dept = &model.Department{Name: fmt.Sprintf("Dept-%d", suffix), IsActive: true}
	if err := testDB.WithContext(ctx).Create(dept).Error; err != nil {
		t.Fatalf("创建院系失败: %v", err)
	}

	user = &model.User{
		Name:         "Test Teacher",
		Email:        fmt.Sprintf("teacher%d@college.edu", suffix),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleTeacher,
		DepartmentID: dept.DepartmentID,
	}
	if err := testDB.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	cleanup = func() {
		testDB.Exec("DELETE FROM timetable_reviews WHERE timetable_id IN (SELECT timetable_id FROM timetables WHERE owner_id = ?)", user.UserID)
		testDB.Unscoped().Where("owner_id = ?", user.UserID).Delete(&model.Timetable{})
		testDB.Unscoped().Where("user_id = ?", user.UserID).Delete(&model.User{})
		testDB.Unscoped().Where("department_id = ?", dept.DepartmentID).Delete(&model.Department{})
	}
	return
}

func newTimetable(user *model.User, name string) *model.Timetable {
	return &model.Timetable{
		OwnerID:      user.UserID,
		DepartmentID: user.DepartmentID,
		Name:         name,
		Structure:    datatypes.JSON(`{"Monday":{"Period 1":"Math"}}`),
		Metadata:     datatypes.JSON(`{"status":"pending_approval"}`),
		Status:       "pending_approval",
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Lookups
// ═══════════════════════════════════════════════════════════

func TestUserRepo_GetByEmail_CaseInsensitive(t *testing.T) {
	_, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	found, err := repo.User.GetByEmail(context.Background(), strings.ToUpper(user.Email))
	if err != nil {
		t.Fatalf("GetByEmail 失败: %v", err)
	}
	if found.Department == nil || found.Department.DepartmentID != user.DepartmentID {
		t.Error("期望预加载院系")
	}
}

func TestDepartmentRepo_GetByName_CaseInsensitive(t *testing.T) {
	dept, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	found, err := repo.Department.GetByName(context.Background(), strings.ToLower(dept.Name))
	if err != nil {
		t.Fatalf("GetByName 失败: %v", err)
	}
	if found.DepartmentID != dept.DepartmentID {
		t.Errorf("期望 %s，实际 %s", dept.DepartmentID, found.DepartmentID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	_, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	tt := newTimetable(user, "Timetable 1")
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timetable.Create(ctx, tt); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 boom，实际 %v", err)
	}

	if _, err := repo.Timetable.GetByID(ctx, tt.TimetableID); err == nil {
		t.Fatal("期望回滚后查不到课表，但实际查到了")
	}
}

func TestTransaction_Commit(t *testing.T) {
	_, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	tt := newTimetable(user, "Timetable 1")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Timetable.Create(ctx, tt)
	})
	if err != nil {
		t.Fatalf("事务提交失败: %v", err)
	}

	found, err := repo.Timetable.GetByID(ctx, tt.TimetableID)
	if err != nil {
		t.Fatalf("提交后查询失败: %v", err)
	}
	if found.Owner == nil || found.Owner.UserID != user.UserID {
		t.Error("期望预加载 Owner")
	}
	if found.Version != 1 {
		t.Errorf("期望 version=1，实际=%d", found.Version)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Timetable_ConflictDetected(t *testing.T) {
	_, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	tt := newTimetable(user, "Timetable 1")
	if err := repo.Timetable.Create(ctx, tt); err != nil {
		t.Fatalf("创建课表失败: %v", err)
	}

	// 模拟两个 HOD 同时审核
	copy1, _ := repo.Timetable.GetByID(ctx, tt.TimetableID)
	copy2, _ := repo.Timetable.GetByID(ctx, tt.TimetableID)

	copy1.Status = "approved"
	if err := repo.Timetable.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != 2 {
		t.Errorf("期望 version=2，实际=%d", copy1.Version)
	}

	copy2.Status = "rejected"
	err := repo.Timetable.Update(ctx, copy2)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock，实际: %v", err)
	}

	final, _ := repo.Timetable.GetByID(ctx, tt.TimetableID)
	if final.Status != "approved" {
		t.Errorf("期望最终状态 approved，实际 %s", final.Status)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Listing & Counting
// ═══════════════════════════════════════════════════════════

func TestTimetableRepo_ListAndCount(t *testing.T) {
	dept, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		tt := newTimetable(user, fmt.Sprintf("Timetable %d", i))
		if i == 3 {
			tt.Status = "approved"
		}
		if err := repo.Timetable.Create(ctx, tt); err != nil {
			t.Fatalf("创建课表失败: %v", err)
		}
	}

	list, total, err := repo.Timetable.ListByOwner(ctx, user.UserID, 0, 2)
	if err != nil {
		t.Fatalf("ListByOwner 失败: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Errorf("期望 total=3 len=2，实际 total=%d len=%d", total, len(list))
	}

	pending, err := repo.Timetable.ListByDepartmentAndStatus(ctx, dept.DepartmentID, "pending_approval")
	if err != nil {
		t.Fatalf("ListByDepartmentAndStatus 失败: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("期望 2 个待审核，实际 %d", len(pending))
	}

	counts, err := repo.Timetable.CountByStatus(ctx, repository.StatusCountFilter{OwnerID: user.UserID})
	if err != nil {
		t.Fatalf("CountByStatus 失败: %v", err)
	}
	if counts["pending_approval"] != 2 || counts["approved"] != 1 {
		t.Errorf("统计不符: %v", counts)
	}

	// 软删除后编号计数不回退
	testDB.Where("owner_id = ? AND name = ?", user.UserID, "Timetable 1").Delete(&model.Timetable{})
	n, err := repo.Timetable.CountByOwner(ctx, user.UserID)
	if err != nil {
		t.Fatalf("CountByOwner 失败: %v", err)
	}
	if n != 3 {
		t.Errorf("期望含软删除计数 3，实际 %d", n)
	}
}

func TestReviewRepo_AppendAndList(t *testing.T) {
	_, user, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	tt := newTimetable(user, "Timetable 1")
	if err := repo.Timetable.Create(ctx, tt); err != nil {
		t.Fatalf("创建课表失败: %v", err)
	}

	for _, action := range []string{model.ReviewActionRequestModification, model.ReviewActionApprove} {
		review := &model.TimetableReview{
			TimetableID: tt.TimetableID,
			ReviewerID:  user.UserID,
			Action:      action,
			FromStatus:  "pending_approval",
			ToStatus:    "pending_approval",
		}
		if err := repo.Review.Create(ctx, review); err != nil {
			t.Fatalf("创建审核记录失败: %v", err)
		}
	}

	reviews, err := repo.Review.ListByTimetable(ctx, tt.TimetableID)
	if err != nil {
		t.Fatalf("ListByTimetable 失败: %v", err)
	}
	if len(reviews) != 2 {
		t.Errorf("期望 2 条审核记录，实际 %d", len(reviews))
	}
}
