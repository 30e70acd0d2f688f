package workflow

import (
	"context"
	"os"
	"testing"
	"time"

	"assist-platform/internal/storage/kv"
	"assist-platform/pkg/log"
)

func TestSweep_RemovesExpired(t *testing.T) {
	ctx := context.Background()
	logger, _ := log.NewLogger(nil)
	store := kv.NewMemoryStore()
	defer store.Close()

	_ = store.Put(ctx, "session:live", []byte("{}"), time.Hour)
	_ = store.Put(ctx, "session:dead", []byte("{}"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if err := Sweep(ctx, store, logger); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if _, err := store.Get(ctx, "session:live"); err != nil {
		t.Errorf("live record should survive sweep: %v", err)
	}
	if _, err := store.Get(ctx, "session:dead"); err != kv.ErrNotFound {
		t.Errorf("expired record should be gone, got %v", err)
	}
}

func TestRunSweeper_SweepsOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger, _ := log.NewLogger(nil)
	root := t.TempDir()
	store, err := kv.NewFileStore(root, logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	_ = store.Put(ctx, "session:live", []byte("{}"), time.Hour)
	_ = store.Put(ctx, "session:dead", []byte("{}"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	// 间隔远大于测试时长：只有启动时的首轮清扫会执行
	go RunSweeper(ctx, SweepConfig{Enable: true, Interval: time.Hour}, store, logger)
	time.Sleep(80 * time.Millisecond)
	cancel()

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var files int
	for _, e := range entries {
		if !e.IsDir() {
			files++
		}
	}
	if files != 1 {
		t.Errorf("expected 1 surviving record file after initial sweep, got %d", files)
	}
}

func TestSweep_NonListerIsNoop(t *testing.T) {
	logger, _ := log.NewLogger(nil)
	// failingStore 不实现 Lister，清扫应直接跳过
	if err := Sweep(context.Background(), failingStore{}, logger); err != nil {
		t.Errorf("Sweep on non-lister: %v", err)
	}
}
