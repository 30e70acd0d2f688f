// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assist-platform/internal/storage/kv"
	"assist-platform/pkg/log"
	"assist-platform/pkg/metrics"
	"assist-platform/pkg/tracing"
)

var (
	// ErrSessionNotFound 会话不存在或已过期；调用方应新开会话
	ErrSessionNotFound = errors.New("workflow: session not found or expired")
	// ErrWorkflowTerminal 对已终止会话发起续传；调用方应新开会话
	ErrWorkflowTerminal = errors.New("workflow: session is terminal, start a new session")
)

const keyPrefix = "session:"

// Manager 会话生命周期管理：创建、步进、结果累积、完成、过期清理。
// 存储失败一律降级为 not-found 语义，不把后端故障抛成工具崩溃
type Manager struct {
	store  kv.Store
	ttl    time.Duration
	logger *log.Logger
}

// NewManager 创建 Manager；ttl<=0 使用 DefaultTTL
func NewManager(store kv.Store, ttl time.Duration, logger *log.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, logger: logger}
}

// Start 新开会话：step_number=1，写入初始记录并返回。仅在存储后端本身失败时报错
func (m *Manager) Start(ctx context.Context, toolName, initialStep string, totalSteps int) (*Session, error) {
	s := New(toolName, initialStep, totalSteps, m.ttl)
	ctx, span := tracing.StartSessionSpan(ctx, "start", s.ID)
	defer span.End()
	if err := m.put(ctx, s); err != nil {
		metrics.SessionOpTotal.WithLabelValues("start", "error").Inc()
		return nil, fmt.Errorf("start session: %w", err)
	}
	metrics.SessionOpTotal.WithLabelValues("start", "ok").Inc()
	return s, nil
}

// Continue 续传：加载 → 校验未过期未终止 → 追加 finding、步号 +1、刷新活跃时间 → 整条回写。
// updatedTotalSteps > 0 时修正工作流长度估计。
// 两个进程对同一会话并发续传是已接受的竞争：后写覆盖，但单条记录永远完整
func (m *Manager) Continue(ctx context.Context, id, stepContent string, nextStepRequired bool, updatedTotalSteps int) (*Session, error) {
	ctx, span := tracing.StartSessionSpan(ctx, "continue", id)
	defer span.End()

	s, err := m.load(ctx, id)
	if err != nil {
		metrics.SessionOpTotal.WithLabelValues("continue", "not_found").Inc()
		return nil, err
	}
	if s.Terminal() {
		metrics.SessionOpTotal.WithLabelValues("continue", "terminal").Inc()
		return nil, fmt.Errorf("%w (id=%s)", ErrWorkflowTerminal, id)
	}

	now := time.Now().UTC()
	s.StepNumber++
	s.Findings = append(s.Findings, Finding{StepNumber: s.StepNumber, Content: stepContent, CreatedAt: now})
	s.NextStepRequired = nextStepRequired
	if updatedTotalSteps > 0 {
		s.TotalSteps = updatedTotalSteps
	}
	s.LastActiveAt = now

	if err := m.put(ctx, s); err != nil {
		metrics.SessionOpTotal.WithLabelValues("continue", "error").Inc()
		return nil, fmt.Errorf("persist session %s: %w", id, err)
	}
	metrics.SessionOpTotal.WithLabelValues("continue", "ok").Inc()
	return s, nil
}

// Complete 显式完成：独立于 TTL 的主动清理，删除底层记录
func (m *Manager) Complete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSessionSpan(ctx, "complete", id)
	defer span.End()
	if err := m.store.Delete(ctx, keyPrefix+id); err != nil {
		metrics.SessionOpTotal.WithLabelValues("complete", "error").Inc()
		m.logger.Warn("删除会话记录失败", "session_id", id, "error", err)
		return nil
	}
	metrics.SessionOpTotal.WithLabelValues("complete", "ok").Inc()
	return nil
}

// Get 只读查询；过期记录视为不存在
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracing.StartSessionSpan(ctx, "get", id)
	defer span.End()
	s, err := m.load(ctx, id)
	if err != nil {
		metrics.SessionOpTotal.WithLabelValues("get", "not_found").Inc()
		return nil, err
	}
	metrics.SessionOpTotal.WithLabelValues("get", "ok").Inc()
	return s, nil
}

// TTL 返回配置的会话 TTL（错误信息里回显给用户自纠错用）
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w (empty id)", ErrSessionNotFound)
	}
	data, err := m.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			// 后端中途故障：记一条日志，按 not-found 降级
			m.logger.Warn("会话读取失败，按不存在处理", "session_id", id, "error", err)
		}
		return nil, fmt.Errorf("%w (id=%s, ttl=%s)", ErrSessionNotFound, id, m.ttl)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("会话记录损坏，按不存在处理", "session_id", id, "error", err)
		_ = m.store.Delete(ctx, keyPrefix+id)
		return nil, fmt.Errorf("%w (id=%s, ttl=%s)", ErrSessionNotFound, id, m.ttl)
	}
	if s.Expired(time.Now()) {
		// 读时惰性删除；绝不复活过期状态
		_ = m.store.Delete(ctx, keyPrefix+id)
		return nil, fmt.Errorf("%w (id=%s, ttl=%s)", ErrSessionNotFound, id, m.ttl)
	}
	return &s, nil
}

func (m *Manager) put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, keyPrefix+s.ID, data, s.TTL)
}
