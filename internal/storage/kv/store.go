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
	"errors"
	"time"
)

var (
	// ErrNotFound key 不存在或已过期
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable 驱动初始化失败（非致命，由 Select 降级到下一个驱动）
	ErrUnavailable = errors.New("kv: backend unavailable")
	// ErrOperationFailed 已绑定的后端在操作中失败；上层按 miss/absent 处理，不得崩溃
	ErrOperationFailed = errors.New("kv: storage operation failed")
)

// Store 键值存储抽象：小型 JSON 记录 + TTL，跨进程并发安全由各驱动自行保证
type Store interface {
	// Put 写入整条记录；ttl<=0 表示不过期
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get 读取记录；过期记录等同不存在，返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete 删除记录；key 不存在时不报错
	Delete(ctx context.Context, key string) error
	// Touch 滑动续期：重置 key 的 TTL；key 不存在返回 ErrNotFound
	Touch(ctx context.Context, key string, ttl time.Duration) error
	// Name 返回驱动名（memory | file | redis），供观测用
	Name() string
	// Close 释放驱动资源
	Close() error
}

// Lister 可选扩展能力：枚举指定前缀的 key，供周期清扫用。
// 远端驱动不实现（TTL 由服务端原生保证），调用方需类型断言并容忍缺失
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}
