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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL 会话默认存活时长：最后活跃后三小时过期
const DefaultTTL = 3 * time.Hour

// Finding 单步结果片段。append-only：后续步骤可读不可改
type Finding struct {
	StepNumber int       `json:"step_number"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session 一次可续传多步工作流的完整状态。整条记录作为单一 JSON 文档读写，
// 不做字段级更新（跨进程竞争下保证不会出现半写状态）
type Session struct {
	ID               string        `json:"id"`
	ToolName         string        `json:"tool_name"`
	StepNumber       int           `json:"step_number"`
	TotalSteps       int           `json:"total_steps"`
	NextStepRequired bool          `json:"next_step_required"`
	Findings         []Finding     `json:"findings"`
	FilesChecked     []string      `json:"files_checked,omitempty"`
	RelevantFiles    []string      `json:"relevant_files,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	LastActiveAt     time.Time     `json:"last_active_at"`
	TTL              time.Duration `json:"ttl"`
}

// New 创建新 Session；id 由 uuid 生成，不可预测且创建后不可变
func New(toolName, initialStep string, totalSteps int, ttl time.Duration) *Session {
	now := time.Now().UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Session{
		ID:               "session-" + uuid.New().String(),
		ToolName:         toolName,
		StepNumber:       1,
		TotalSteps:       totalSteps,
		NextStepRequired: true,
		Findings: []Finding{
			{StepNumber: 1, Content: initialStep, CreatedAt: now},
		},
		CreatedAt:    now,
		LastActiveAt: now,
		TTL:          ttl,
	}
}

// Expired 判断会话是否已过最后活跃时间 + TTL。过期会话对所有读操作等同不存在
func (s *Session) Expired(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.After(s.LastActiveAt.Add(s.TTL))
}

// Terminal 会话是否已终止（next_step_required = false 后不可再续）
func (s *Session) Terminal() bool {
	return !s.NextStepRequired
}

// AddFileChecked 集合语义追加：重复项拒绝，插入顺序无关
func (s *Session) AddFileChecked(path string) {
	s.FilesChecked = appendUnique(s.FilesChecked, path)
}

// AddRelevantFile 同 AddFileChecked，作用于 relevant_files
func (s *Session) AddRelevantFile(path string) {
	s.RelevantFiles = appendUnique(s.RelevantFiles, path)
}

func appendUnique(set []string, v string) []string {
	if v == "" {
		return set
	}
	for _, existing := range set {
		if existing == v {
			return set
		}
	}
	return append(set, v)
}

// DeriveSessionID 自动会话标识：基于工作目录、仓库状态与小时级时间窗的幂等派生。
// 与显式 id 是两套方案：派生 id 仅在调用方未显式传 id 时使用，前缀 auto- 区分
func DeriveSessionID(workdir, repoState string, at time.Time) string {
	h := sha256.New()
	h.Write([]byte(workdir))
	h.Write([]byte("|"))
	h.Write([]byte(repoState))
	h.Write([]byte("|"))
	fmt.Fprintf(h, "%d", at.UTC().Truncate(time.Hour).Unix())
	return "auto-" + hex.EncodeToString(h.Sum(nil))[:16]
}
