package llm

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_WaitRelease(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(map[string]LimitConfig{
		"claude": {RequestsPerMinute: 6000, MaxConcurrent: 1},
	}, LimitConfig{})

	if err := l.Wait(ctx, "claude"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// 并发额度占满时第二个 Wait 应阻塞到 ctx 超时
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx2, "claude"); err == nil {
		t.Error("second Wait should block until ctx expires")
		l.Release("claude")
	}

	l.Release("claude")
	if err := l.Wait(ctx, "claude"); err != nil {
		t.Errorf("Wait after release: %v", err)
	}
	l.Release("claude")
}

func TestRateLimiter_UnknownProviderUsesDefaults(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(nil, LimitConfig{})

	// 未配置的 provider 按默认额度放行
	if err := l.Wait(ctx, "unheard-of"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	l.Release("unheard-of")
}
