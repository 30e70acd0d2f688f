package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Put(ctx, "k1", []byte(`{"v":1}`), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("Get: got %s", got)
	}
}

func TestMemoryStore_Get_Missing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_TTL_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Put(ctx, "k1", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := s.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryStore_Touch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Put(ctx, "k1", []byte("v"), 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if err := s.Touch(ctx, "k1", 100*time.Millisecond); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	// 原 TTL 已过，但 Touch 续期后仍应可读
	if _, err := s.Get(ctx, "k1"); err != nil {
		t.Errorf("Get after touch: %v", err)
	}

	if err := s.Touch(ctx, "missing", time.Second); err != ErrNotFound {
		t.Errorf("Touch missing: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Touch_ClearTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	// 对本就不过期的 key 执行 Touch(0) 是合法空操作，不是 not-found
	_ = s.Put(ctx, "k", []byte("v"), 0)
	if err := s.Touch(ctx, "k", 0); err != nil {
		t.Errorf("Touch(0) on live key: %v", err)
	}
	// 对带 TTL 的 key 执行 Touch(0) 取消过期
	_ = s.Put(ctx, "k2", []byte("v"), 30*time.Millisecond)
	if err := s.Touch(ctx, "k2", 0); err != nil {
		t.Fatalf("Touch(0): %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := s.Get(ctx, "k2"); err != nil {
		t.Errorf("Get after clearing ttl: %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Put(ctx, "k1", []byte("v"), 0)
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// 删除不存在的 key 不报错
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestMemoryStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Put(ctx, "session:a", []byte("1"), 0)
	_ = s.Put(ctx, "session:b", []byte("2"), 0)
	_ = s.Put(ctx, "cache:c", []byte("3"), 0)

	lister, ok := s.(Lister)
	if !ok {
		t.Fatal("memory store should implement Lister")
	}
	keys, err := lister.Keys(ctx, "session:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 session keys, got %d: %v", len(keys), keys)
	}
}

func TestMemoryStore_ValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	buf := []byte("abc")
	_ = s.Put(ctx, "k1", buf, 0)
	buf[0] = 'x'
	got, _ := s.Get(ctx, "k1")
	if string(got) != "abc" {
		t.Errorf("stored value should not alias caller buffer, got %s", got)
	}
}
