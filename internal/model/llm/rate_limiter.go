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

package llm

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig 单个 provider 的限流配置
type LimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"` // 每分钟请求数
	MaxConcurrent     int     `yaml:"max_concurrent"`      // 最大并发请求数
}

// RateLimiter provider 维度的限流器：RPS + 并发控制
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*providerLimiter
	defaults LimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter
	semaphore chan struct{}
}

// NewRateLimiter 创建限流器；configs 缺省的 provider 用 defaults
func NewRateLimiter(configs map[string]LimitConfig, defaults LimitConfig) *RateLimiter {
	if defaults.RequestsPerMinute <= 0 {
		defaults.RequestsPerMinute = 600
	}
	if defaults.MaxConcurrent <= 0 {
		defaults.MaxConcurrent = 8
	}
	l := &RateLimiter{
		limiters: make(map[string]*providerLimiter),
		defaults: defaults,
	}
	for provider, cfg := range configs {
		l.add(provider, cfg)
	}
	return l
}

func (l *RateLimiter) add(provider string, cfg LimitConfig) *providerLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = l.defaults.RequestsPerMinute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = l.defaults.MaxConcurrent
	}
	rps := cfg.RequestsPerMinute / 60.0
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	pl := &providerLimiter{
		requests:  rate.NewLimiter(rate.Limit(rps), burst),
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
	}
	l.mu.Lock()
	l.limiters[provider] = pl
	l.mu.Unlock()
	return pl
}

// Wait 阻塞直至获得执行许可；ctx 取消时返回其错误
func (l *RateLimiter) Wait(ctx context.Context, provider string) error {
	pl := l.get(provider)
	if err := pl.requests.Wait(ctx); err != nil {
		return err
	}
	select {
	case pl.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还并发许可，与成功的 Wait 配对调用
func (l *RateLimiter) Release(provider string) {
	pl := l.get(provider)
	select {
	case <-pl.semaphore:
	default:
	}
}

func (l *RateLimiter) get(provider string) *providerLimiter {
	l.mu.RLock()
	pl, ok := l.limiters[provider]
	l.mu.RUnlock()
	if ok {
		return pl
	}
	return l.add(provider, l.defaults)
}
