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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"assist-platform/internal/storage/kv"
	"assist-platform/pkg/log"
	"assist-platform/pkg/metrics"
	"assist-platform/pkg/tracing"
)

// DefaultTTL 缓存条目默认存活时长，与会话 TTL 相互独立
const DefaultTTL = time.Hour

const keyPrefix = "cache:"

// Entry 一条被记忆的上游响应及其元数据
type Entry struct {
	Response        string    `json:"response"`
	TokenCountSaved int       `json:"token_count_saved"`
	CreatedAt       time.Time `json:"created_at"`
}

// Cache 内容寻址的响应缓存。同一 digest 只有唯一载荷，无版本概念；
// 并发写同一 digest 的条目按构造等价，后写覆盖即正确。
// 存储故障一律当 miss，绝不让缓存层故障波及上层工具
type Cache struct {
	store   kv.Store
	ttl     time.Duration
	enabled bool
	logger  *log.Logger
}

// New 创建 Cache；ttl<=0 使用 DefaultTTL。enabled=false 时所有查询 miss、所有写入丢弃
func New(store kv.Store, ttl time.Duration, enabled bool, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, enabled: enabled, logger: logger}
}

// Lookup 按指纹查询。过期条目计为 miss 并被移除；命中/未命中计入计数器
func (c *Cache) Lookup(ctx context.Context, digest string) (*Entry, bool) {
	if !c.enabled {
		return nil, false
	}
	ctx, span := tracing.StartCacheSpan(ctx, "lookup", digest)
	defer span.End()

	data, err := c.store.Get(ctx, keyPrefix+digest)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("缓存读取失败，按 miss 处理", "digest", digest, "error", err)
		}
		metrics.CacheMissTotal.Inc()
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("缓存条目损坏，按 miss 处理", "digest", digest, "error", err)
		_ = c.store.Delete(ctx, keyPrefix+digest)
		metrics.CacheMissTotal.Inc()
		return nil, false
	}
	metrics.CacheHitTotal.Inc()
	metrics.CacheTokensSavedTotal.Add(float64(entry.TokenCountSaved))
	return &entry, true
}

// Store 写入条目，覆盖该 digest 的任何旧值。写失败只记日志（下次调用退化为重复上游调用）
func (c *Cache) Store(ctx context.Context, digest string, entry *Entry) {
	if !c.enabled || entry == nil {
		return
	}
	ctx, span := tracing.StartCacheSpan(ctx, "store", digest)
	defer span.End()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("缓存条目序列化失败", "digest", digest, "error", err)
		return
	}
	if err := c.store.Put(ctx, keyPrefix+digest, data, c.ttl); err != nil {
		c.logger.Warn("缓存写入失败", "digest", digest, "error", err)
	}
}

// Enabled 缓存是否启用
func (c *Cache) Enabled() bool { return c.enabled }

// TTL 条目存活时长
func (c *Cache) TTL() time.Duration { return c.ttl }
