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

package kv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assist-platform/pkg/log"
)

// fileRecord 单 key 单文件的自描述记录，包含绝对过期时间，便于进程外检查与手工清理。
// Value 是任意字节（落盘为 base64），不要求本身是 JSON
type fileRecord struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // 零值表示不过期
}

// fileStore 文件实现：每 key 一个 JSON 文件，写入走 temp+rename 保证并发写者下无半写读取。
// 多个短生命周期进程可安全竞争同一根目录。
type fileStore struct {
	root   string
	logger *log.Logger
}

// NewFileStore 创建文件存储；root 不可写时返回 ErrUnavailable
func NewFileStore(root string, logger *log.Logger) (Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: file root is empty", ErrUnavailable)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrUnavailable, root, err)
	}
	// 初始化时探测可写性，让 Select 在绑定前发现问题
	probe := filepath.Join(root, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, fmt.Errorf("%w: root not writable: %v", ErrUnavailable, err)
	}
	_ = os.Remove(probe)
	return &fileStore{root: root, logger: logger}, nil
}

func (s *fileStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := fileRecord{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().UTC().Add(ttl)
	}
	return s.writeRecord(key, rec)
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	rec, err := s.readRecord(key)
	if err != nil {
		return nil, err
	}
	if rec.expired(time.Now()) {
		// 惰性删除过期文件
		_ = os.Remove(s.path(key))
		return nil, ErrNotFound
	}
	return rec.Value, nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", ErrOperationFailed, key, err)
	}
	return nil
}

func (s *fileStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	rec, err := s.readRecord(key)
	if err != nil {
		return err
	}
	if rec.expired(time.Now()) {
		_ = os.Remove(s.path(key))
		return ErrNotFound
	}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().UTC().Add(ttl)
	} else {
		rec.ExpiresAt = time.Time{}
	}
	return s.writeRecord(key, *rec)
}

// Keys 实现 Lister：扫描根目录下的记录文件，返回未过期记录的原始 key。
// 损坏文件跳过（读路径会在下次访问时清理）
func (s *fileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrOperationFailed, s.root, err)
	}
	now := time.Now()
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.expired(now) {
			_ = os.Remove(filepath.Join(s.root, e.Name()))
			continue
		}
		if strings.HasPrefix(rec.Key, prefix) {
			keys = append(keys, rec.Key)
		}
	}
	return keys, nil
}

func (s *fileStore) Name() string { return "file" }

func (s *fileStore) Close() error { return nil }

// path key 经 SHA-256 映射为安全文件名，避免路径穿越与非法字符
func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.root, hex.EncodeToString(sum[:])+".json")
}

// writeRecord 原子写：先写临时文件再 rename 覆盖目标
func (s *fileStore) writeRecord(key string, rec fileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrOperationFailed, key, err)
	}
	target := s.path(key)
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrOperationFailed, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %v", ErrOperationFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrOperationFailed, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrOperationFailed, key, err)
	}
	return nil
}

// readRecord 读取并解析记录；文件缺失或损坏按 absent-with-warning 处理
func (s *fileStore) readRecord(key string) (*fileRecord, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrOperationFailed, key, err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		if s.logger != nil {
			s.logger.Warn("丢弃损坏的存储记录", "key", key, "error", err)
		}
		_ = os.Remove(s.path(key))
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *fileRecord) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now)
}
