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

package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"assist-platform/pkg/metrics"
)

// Policy 有界指数退避重试。总等待被 MaxAttempts × MaxDelay 封顶，任何操作不会无限阻塞
type Policy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultPolicy 默认重试参数
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     4,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        8 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}
}

// 瞬态/永久分类用显式错误包装表达，不依赖异常层级猜测。
// 未包装的错误默认按永久处理：宁可立即上报，不可盲目重试
type transientError struct{ err error }

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient 标记瞬态失败（连接、超时、限流），Do 会按策略重试
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Permanent 标记永久失败（请求格式、鉴权），Do 立即上报不重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient 判断错误是否应当重试。显式标记优先；
// 网络层超时类错误未标记时也视为瞬态
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// Unwrap 去掉分类包装，还原原始错误
func Unwrap(err error) error {
	var te *transientError
	if errors.As(err, &te) {
		return te.err
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}

// Do 以策略包装任意可失败调用。仅瞬态失败重试；
// 等待时长 min(base × expBase^attempt, max)，Jitter 时乘以 [0.5, 1.0) 的随机因子
// 打散并发进程的重试风暴；耗尽后原样返回最后一次错误
func (p Policy) Do(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RetryAttemptTotal.WithLabelValues(provider).Inc()
			if err := sleep(ctx, p.delay(attempt-1)); err != nil {
				return lastErr
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = Unwrap(err)
		if !IsTransient(err) {
			return lastErr
		}
	}
	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	expBase := p.ExponentialBase
	if expBase <= 1 {
		expBase = 2
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 8 * time.Second
	}
	d := time.Duration(float64(base) * math.Pow(expBase, float64(attempt)))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + 0.5*rand.Float64()))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
