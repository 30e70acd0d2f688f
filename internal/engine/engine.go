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

package engine

import (
	"context"
	"os"
	"path/filepath"

	"assist-platform/internal/cache"
	"assist-platform/internal/model/llm"
	"assist-platform/internal/retry"
	"assist-platform/internal/storage/kv"
	"assist-platform/internal/workflow"
	"assist-platform/pkg/config"
	"assist-platform/pkg/errors"
	"assist-platform/pkg/log"
	"assist-platform/pkg/secrets"
	"assist-platform/pkg/tracing"
	"assist-platform/pkg/utils"
)

// Engine 统一初始化的持久化引擎句柄：配置 → 日志 → 后端选择 → 各组件。
// 显式构造、显式传递，除一次性的后端选择结果外不持有任何进程级单例
type Engine struct {
	Config   *config.Config
	Logger   *log.Logger
	Store    kv.Store
	Sessions *workflow.Manager
	Cache    *cache.Cache
	Policy   retry.Policy
	Secrets  secrets.Store

	limiter *llm.RateLimiter
}

// New 根据配置创建 Engine。存储后端在此处一次性选定并注入各组件，
// 之后任何地方不再按后端类型分支
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logCfg := &log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, errors.Wrap(err, "初始化日志失败")
	}

	if cfg.Tracing.Enable {
		serviceName := utils.CoalesceString(cfg.Tracing.ServiceName, "coassist")
		if _, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    serviceName,
			ExportEndpoint: cfg.Tracing.ExportEndpoint,
			Insecure:       cfg.Tracing.Insecure,
		}); err != nil {
			logger.Warn("初始化 tracer 失败，继续无追踪运行", "error", err)
		}
	}

	store := kv.Select(ctx, kv.SelectorConfig{
		Type: cfg.Storage.Type,
		Redis: kv.RedisConfig{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		},
		FileRoot: fileRoot(cfg.Storage.FileRoot),
	}, logger)

	sessionTTL := utils.ParseDurationOr(cfg.Session.TTL, workflow.DefaultTTL)
	cacheTTL := utils.ParseDurationOr(cfg.Cache.TTL, cache.DefaultTTL)
	cacheEnabled := cfg.Cache.Enable == nil || *cfg.Cache.Enable

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Config:   cfg.Secrets.Config,
	})
	if err != nil {
		logger.Warn("secret store 初始化失败，回退环境变量", "error", err)
		secretStore = secrets.NewEnvStore()
	}

	e := &Engine{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Sessions: workflow.NewManager(store, sessionTTL, logger),
		Cache:    cache.New(store, cacheTTL, cacheEnabled, logger),
		Policy:   retryPolicy(cfg.Retry),
		Secrets:  secretStore,
		limiter:  llm.NewRateLimiter(nil, llm.LimitConfig{}),
	}
	return e, nil
}

// Client 组装指定 provider 的完整调用链：原始客户端 → 限流 → 缓存 + 重试。
// name 为空时使用配置的默认 provider
func (e *Engine) Client(ctx context.Context, name string) (llm.Client, error) {
	if name == "" {
		name = e.Config.Model.Default
	}
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidArg, "未指定 provider 且无默认配置")
	}
	provider, ok := e.Config.Model.Providers[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "provider %s 未配置", name)
	}
	apiKey, err := secrets.ResolveAPIKey(ctx, e.Secrets, name, provider.APIKey)
	if err != nil {
		return nil, errors.Wrapf(err, "解析 provider %s 的 api key 失败", name)
	}
	inner, err := llm.NewClient(name, provider.Model, apiKey, provider.BaseURL)
	if err != nil {
		return nil, err
	}
	limited := llm.NewRateLimitedClient(inner, e.limiter)
	return llm.NewCachedClient(limited, e.Cache, e.Policy), nil
}

// StartSweeper 在后台启动过期会话清扫（配置未开启时为空操作）
func (e *Engine) StartSweeper(ctx context.Context) {
	interval := utils.ParseDurationOr(e.Config.Session.SweepInterval, 0)
	go workflow.RunSweeper(ctx, workflow.SweepConfig{
		Enable:   interval > 0,
		Interval: interval,
	}, e.Store, e.Logger)
}

// Close 释放存储后端资源
func (e *Engine) Close() error {
	return e.Store.Close()
}

func retryPolicy(cfg config.Retry) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = utils.DefaultInt(cfg.MaxAttempts, p.MaxAttempts)
	p.BaseDelay = utils.ParseDurationOr(cfg.BaseDelay, p.BaseDelay)
	p.MaxDelay = utils.ParseDurationOr(cfg.MaxDelay, p.MaxDelay)
	if cfg.ExponentialBase > 1 {
		p.ExponentialBase = cfg.ExponentialBase
	}
	if cfg.Jitter != nil {
		p.Jitter = *cfg.Jitter
	}
	return p
}

// fileRoot file 驱动根目录；未配置时用 ~/.coassist/state
func fileRoot(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "coassist-state")
	}
	return filepath.Join(home, ".coassist", "state")
}
