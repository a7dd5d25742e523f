package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"dinayojana/internal/model"
	"dinayojana/internal/repository"
	pkgerrors "dinayojana/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 或 "email:"+email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	m.users["email:"+strings.ToLower(user.Email)] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	depts map[string]*model.Department
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{depts: make(map[string]*model.Department)}
}

func (m *mockDeptRepo) Create(_ context.Context, dept *model.Department) error {
	if dept.DepartmentID == "" {
		dept.DepartmentID = fmt.Sprintf("dept-%d", len(m.depts)+1)
	}
	m.depts[dept.DepartmentID] = dept
	return nil
}

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d, ok := m.depts[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) GetByName(_ context.Context, name string) (*model.Department, error) {
	for _, d := range m.depts {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TimetableRepository ──

type mockTimetableRepo struct {
	mu        sync.Mutex
	items     map[string]*model.Timetable
	seq       int
	createErr error
}

func newMockTimetableRepo() *mockTimetableRepo {
	return &mockTimetableRepo{items: make(map[string]*model.Timetable)}
}

func (m *mockTimetableRepo) Create(_ context.Context, tt *model.Timetable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if tt.TimetableID == "" {
		tt.TimetableID = fmt.Sprintf("tt-%d", m.seq)
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	}
	if tt.Version == 0 {
		tt.Version = 1
	}
	cp := *tt
	m.items[tt.TimetableID] = &cp
	return nil
}

func (m *mockTimetableRepo) GetByID(_ context.Context, id string) (*model.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tt, ok := m.items[id]; ok {
		cp := *tt
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimetableRepo) sorted(filter func(*model.Timetable) bool) []model.Timetable {
	var list []model.Timetable
	for _, tt := range m.items {
		if filter(tt) {
			list = append(list, *tt)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (m *mockTimetableRepo) ListByOwner(_ context.Context, ownerID string, offset, limit int) ([]model.Timetable, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sorted(func(tt *model.Timetable) bool { return tt.OwnerID == ownerID })
	total := int64(len(list))
	if offset >= len(list) {
		return []model.Timetable{}, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockTimetableRepo) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, tt := range m.items {
		if tt.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *mockTimetableRepo) ListByDepartmentAndStatus(_ context.Context, departmentID, status string) ([]model.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(tt *model.Timetable) bool {
		return tt.DepartmentID == departmentID && tt.Status == status
	}), nil
}

func (m *mockTimetableRepo) CountByStatus(_ context.Context, filter repository.StatusCountFilter) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, tt := range m.items {
		if filter.OwnerID != "" && tt.OwnerID != filter.OwnerID {
			continue
		}
		if filter.DepartmentID != "" && tt.DepartmentID != filter.DepartmentID {
			continue
		}
		counts[tt.Status]++
	}
	return counts, nil
}

func (m *mockTimetableRepo) Update(_ context.Context, tt *model.Timetable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[tt.TimetableID]
	if !ok || stored.Version != tt.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version++
	cp := *tt
	m.items[tt.TimetableID] = &cp
	return nil
}

// ── Mock ReviewRepository ──

type mockReviewRepo struct {
	reviews []model.TimetableReview
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{}
}

func (m *mockReviewRepo) Create(_ context.Context, review *model.TimetableReview) error {
	if review.ReviewID == "" {
		review.ReviewID = fmt.Sprintf("review-%d", len(m.reviews)+1)
	}
	m.reviews = append(m.reviews, *review)
	return nil
}

func (m *mockReviewRepo) ListByTimetable(_ context.Context, timetableID string) ([]model.TimetableReview, error) {
	var list []model.TimetableReview
	for _, r := range m.reviews {
		if r.TimetableID == timetableID {
			list = append(list, r)
		}
	}
	return list, nil
}

// ── 聚合 ──

type mockRepos struct {
	user      *mockUserRepo
	dept      *mockDeptRepo
	timetable *mockTimetableRepo
	review    *mockReviewRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:      newMockUserRepo(),
		dept:      newMockDeptRepo(),
		timetable: newMockTimetableRepo(),
		review:    newMockReviewRepo(),
	}
	repo := &repository.Repository{
		User:       m.user,
		Department: m.dept,
		Timetable:  m.timetable,
		Review:     m.review,
	}
	return repo, m
}
