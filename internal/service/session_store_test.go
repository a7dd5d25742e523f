package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dinayojana/internal/intake"
	pkgerrors "dinayojana/pkg/errors"
)

func TestMemorySessionStore_SaveLoadDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	conv := &Conversation{
		Session: intake.NewSession("s-1", intakeNow),
		UserID:  "user-1",
		Seed:    42,
	}
	if err := store.Save(ctx, conv, time.Hour); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	// 保存的是快照，调用方后续修改不影响存储
	conv.Seed = 0

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if got.Seed != 42 || got.Session.ID != "s-1" || len(got.Session.Outbox) != 2 {
		t.Errorf("读取内容不正确: %+v", got)
	}

	_ = store.Delete(ctx, "user-1")
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, pkgerrors.ErrSessionNotFound) {
		t.Errorf("删除后应返回 ErrSessionNotFound，实际: %v", err)
	}
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore().(*memorySessionStore)
	now := intakeNow
	store.now = func() time.Time { return now }

	_ = store.Save(context.Background(), &Conversation{UserID: "user-1"}, time.Minute)

	now = now.Add(59 * time.Second)
	if _, err := store.Load(context.Background(), "user-1"); err != nil {
		t.Fatalf("TTL 内应可读取: %v", err)
	}

	now = now.Add(time.Second)
	if _, err := store.Load(context.Background(), "user-1"); !errors.Is(err, pkgerrors.ErrSessionNotFound) {
		t.Errorf("过期后应返回 ErrSessionNotFound，实际: %v", err)
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	locks := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("user-1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("同一 key 应串行执行，期望 50，实际 %d", counter)
	}
	if n := locks.size(); n != 0 {
		t.Errorf("全部解锁后不应残留 key，实际 %d", n)
	}
}

func TestKeyedMutex_ReleasesKeys(t *testing.T) {
	locks := newKeyedMutex()
	for i := 0; i < 100; i++ {
		unlock := locks.Lock(fmt.Sprintf("user-%d", i))
		unlock()
	}
	if n := locks.size(); n != 0 {
		t.Errorf("解锁后应回收 key，实际残留 %d", n)
	}

	unlockA := locks.Lock("user-a")
	unlockB := locks.Lock("user-b")
	if n := locks.size(); n != 2 {
		t.Errorf("持有中的 key 应保留，期望 2，实际 %d", n)
	}
	unlockA()
	unlockB()
	if n := locks.size(); n != 0 {
		t.Errorf("解锁后应回收 key，实际残留 %d", n)
	}
}

// size 当前仍被持有或等待的 key 数
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
