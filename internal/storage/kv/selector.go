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

	"assist-platform/pkg/log"
	"assist-platform/pkg/metrics"
)

// SelectorConfig 后端选择配置。Type 为空或 "auto" 时按 redis → file → memory 优先级探测；
// 指定具体类型时只尝试该驱动，失败仍兜底到 memory。
type SelectorConfig struct {
	Type     string
	Redis    RedisConfig
	FileRoot string
}

// Select 进程启动时执行一次：按固定优先级探测驱动，绑定第一个初始化成功的，
// 并记录选中的后端（诊断"本机没问题"类差异的关键日志）。
// redis 优先因为共享且持久；file 次之因为可跨进程续传工作流；memory 是保底。
func Select(ctx context.Context, cfg SelectorConfig, logger *log.Logger) Store {
	order := candidates(cfg.Type)
	for _, name := range order {
		store, err := open(ctx, name, cfg, logger)
		if err != nil {
			// 初始化失败非致命：报告一次后降级到下一个驱动
			logger.Warn("存储后端初始化失败，降级", "backend", name, "error", err)
			continue
		}
		logger.Info("存储后端已选定", "backend", store.Name())
		metrics.StorageBackendSelected.WithLabelValues(store.Name()).Set(1)
		return store
	}
	// memory 构造不会失败，不会走到这里；保底返回以保证非空
	store := NewMemoryStore()
	logger.Info("存储后端已选定", "backend", store.Name())
	metrics.StorageBackendSelected.WithLabelValues(store.Name()).Set(1)
	return store
}

func candidates(typ string) []string {
	switch typ {
	case "", "auto":
		return []string{"redis", "file", "memory"}
	case "redis":
		return []string{"redis", "memory"}
	case "file":
		return []string{"file", "memory"}
	default:
		return []string{"memory"}
	}
}

func open(ctx context.Context, name string, cfg SelectorConfig, logger *log.Logger) (Store, error) {
	switch name {
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "file":
		return NewFileStore(cfg.FileRoot, logger)
	default:
		return NewMemoryStore(), nil
	}
}
