package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"assist-platform/internal/storage/kv"
	"assist-platform/pkg/log"
)

func newTestCache(t *testing.T, ttl time.Duration, enabled bool) *Cache {
	t.Helper()
	logger, _ := log.NewLogger(nil)
	store := kv.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return New(store, ttl, enabled, logger)
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0, true)

	digest := Fingerprint("claude", "claude-sonnet", &Request{Kind: "generate", Prompt: "hi"})
	if _, ok := c.Lookup(ctx, digest); ok {
		t.Fatal("empty cache should miss")
	}

	c.Store(ctx, digest, &Entry{Response: "hello", TokenCountSaved: 42})
	entry, ok := c.Lookup(ctx, digest)
	if !ok {
		t.Fatal("expected hit after store")
	}
	if entry.Response != "hello" || entry.TokenCountSaved != 42 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped on store")
	}
}

func TestCache_TTL_Expiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 30*time.Millisecond, true)

	c.Store(ctx, "digest1", &Entry{Response: "x"})
	if _, ok := c.Lookup(ctx, "digest1"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Lookup(ctx, "digest1"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0, false)

	c.Store(ctx, "digest1", &Entry{Response: "x"})
	if _, ok := c.Lookup(ctx, "digest1"); ok {
		t.Error("disabled cache should always miss")
	}
}

func TestCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0, true)

	c.Store(ctx, "d", &Entry{Response: "old"})
	c.Store(ctx, "d", &Entry{Response: "new"})
	entry, ok := c.Lookup(ctx, "d")
	if !ok || entry.Response != "new" {
		t.Errorf("expected latest entry, got %+v ok=%v", entry, ok)
	}
}

func TestCache_ConcurrentStoreSameDigest(t *testing.T) {
	ctx := context.Background()
	logger, _ := log.NewLogger(nil)
	store, err := kv.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	c := New(store, 0, true, logger)

	// 同一 digest 的条目按构造等价：并发写后读到的必须是一条完整条目
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Store(ctx, "shared-digest", &Entry{Response: "the answer", TokenCountSaved: 42})
			}
		}()
	}
	wg.Wait()

	entry, ok := c.Lookup(ctx, "shared-digest")
	if !ok {
		t.Fatal("expected hit after concurrent stores")
	}
	if entry.Response != "the answer" || entry.TokenCountSaved != 42 {
		t.Errorf("entry corrupted by concurrent writers: %+v", entry)
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	logger, _ := log.NewLogger(nil)
	store := kv.NewMemoryStore()
	defer store.Close()
	c := New(store, 0, true, logger)

	_ = store.Put(ctx, "cache:bad", []byte("{broken"), 0)
	if _, ok := c.Lookup(ctx, "bad"); ok {
		t.Error("corrupt entry should be a miss")
	}
}

func TestCache_StorageFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	logger, _ := log.NewLogger(nil)
	c := New(failingStore{}, 0, true, logger)

	// 读写都不 panic、不抛错，退化为无缓存
	c.Store(ctx, "d", &Entry{Response: "x"})
	if _, ok := c.Lookup(ctx, "d"); ok {
		t.Error("failing store should read as miss")
	}
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return kv.ErrOperationFailed
}
func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, kv.ErrOperationFailed }
func (failingStore) Delete(context.Context, string) error        { return kv.ErrOperationFailed }
func (failingStore) Touch(context.Context, string, time.Duration) error {
	return kv.ErrOperationFailed
}
func (failingStore) Name() string { return "failing" }
func (failingStore) Close() error { return nil }
