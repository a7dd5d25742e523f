package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dinayojana/internal/intake"
	pkgerrors "dinayojana/pkg/errors"
	"dinayojana/pkg/redis"
)

// Conversation 持久化的对话状态
// Seed 决定本次对话的随机序列，重放同一会话得到相同课表
type Conversation struct {
	Session     intake.Session `json:"session"`
	UserID      string         `json:"user_id"`
	Seed        uint64         `json:"seed"`
	TimetableID string         `json:"timetable_id,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SessionStore 对话存储，每个用户最多一个对话
// Load 在不存在或已过期时返回 pkgerrors.ErrSessionNotFound
type SessionStore interface {
	Save(ctx context.Context, conv *Conversation, ttl time.Duration) error
	Load(ctx context.Context, userID string) (*Conversation, error)
	Delete(ctx context.Context, userID string) error
}

// ── Redis 实现 ──

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore 基于 Redis 的对话存储，以 JSON 保存并设置 TTL
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Save(ctx context.Context, conv *Conversation, ttl time.Duration) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.SaveSession(ctx, conv.UserID, data, ttl)
}

func (s *redisSessionStore) Load(ctx context.Context, userID string) (*Conversation, error) {
	data, err := s.client.LoadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, pkgerrors.ErrSessionNotFound
		}
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, userID string) error {
	return s.client.DeleteSession(ctx, userID)
}

// ── 内存实现（Redis 不可用时降级，仅限单实例部署） ──

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionStore 进程内对话存储
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *memorySessionStore) Save(_ context.Context, conv *Conversation, ttl time.Duration) error {
	// 序列化保存，避免调用方持有的切片被后续修改
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[conv.UserID] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memorySessionStore) Load(_ context.Context, userID string) (*Conversation, error) {
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, userID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, pkgerrors.ErrSessionNotFound
	}
	var conv Conversation
	if err := json.Unmarshal(entry.data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *memorySessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

// ── 按用户串行化 ──

// keyedMutex 为每个 key 提供独立的互斥锁，按引用计数回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock 锁定 key，返回解锁函数；最后一个持有者解锁时删除该 key
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

