// Copyright 2026 fanjia1024
// Secret store tests

package secrets

import (
	"context"
	"testing"
)

func TestNewStore_Providers(t *testing.T) {
	if _, err := NewStore(Config{Provider: "env"}); err != nil {
		t.Errorf("env store: %v", err)
	}
	if _, err := NewStore(Config{Provider: ""}); err != nil {
		t.Errorf("empty provider should default to env: %v", err)
	}
	if _, err := NewStore(Config{Provider: "memory"}); err != nil {
		t.Errorf("memory store: %v", err)
	}
	if _, err := NewStore(Config{Provider: "nope"}); err == nil {
		t.Error("unsupported provider should error")
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get missing should error")
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get after delete should error")
	}
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "app/a", "1")
	_ = s.Set(ctx, "app/b", "2")
	_ = s.Set(ctx, "other/c", "3")

	keys, err := s.List(ctx, "app/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("List = %v, want 2 keys", keys)
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()
	s := NewEnvStore()
	t.Setenv("COASSIST_TEST_SECRET", "v")

	got, err := s.Get(ctx, "COASSIST_TEST_SECRET")
	if err != nil || got != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := s.Get(ctx, "COASSIST_TEST_SECRET_ABSENT"); err == nil {
		t.Error("unset variable should error")
	}
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "ANTHROPIC_API_KEY", "sk-claude")
	_ = s.Set(ctx, "COASSIST_LOCAL_API_KEY", "sk-local")

	// 明文配置优先
	got, err := ResolveAPIKey(ctx, s, "claude", "sk-explicit")
	if err != nil || got != "sk-explicit" {
		t.Errorf("explicit key: %q, %v", got, err)
	}
	// claude 走 ANTHROPIC_API_KEY 约定
	got, err = ResolveAPIKey(ctx, s, "claude", "")
	if err != nil || got != "sk-claude" {
		t.Errorf("claude key: %q, %v", got, err)
	}
	// 其余 provider 走 COASSIST_<NAME>_API_KEY
	got, err = ResolveAPIKey(ctx, s, "local", "")
	if err != nil || got != "sk-local" {
		t.Errorf("local key: %q, %v", got, err)
	}
	if _, err := ResolveAPIKey(ctx, s, "openai", ""); err == nil {
		t.Error("missing key should error")
	}
}
