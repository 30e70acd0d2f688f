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

	"assist-platform/internal/cache"
	"assist-platform/internal/retry"
	"assist-platform/pkg/tracing"
)

// CachedClient 包装任意 LLM Client：调用前按内容指纹查响应缓存，
// miss 时经重试策略走真实调用并回写缓存。重复的规划步骤、重复的提问
// 不再产生重复计费
type CachedClient struct {
	inner  Client
	cache  *cache.Cache
	policy retry.Policy
}

// NewCachedClient 创建带缓存与重试的 LLM 客户端。c 为 nil 时只保留重试
func NewCachedClient(inner Client, c *cache.Cache, policy retry.Policy) *CachedClient {
	return &CachedClient{inner: inner, cache: c, policy: policy}
}

// Generate 实现 Client.Generate
func (c *CachedClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	req := &cache.Request{
		Kind:        "generate",
		Prompt:      prompt,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
	return c.roundTrip(ctx, req, func(ctx context.Context) (string, error) {
		return c.inner.Generate(ctx, prompt, options)
	})
}

// Chat 实现 Client.Chat
func (c *CachedClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	cacheMessages := make([]cache.Message, len(messages))
	for i, m := range messages {
		cacheMessages[i] = cache.Message{Role: m.Role, Content: m.Content}
	}
	req := &cache.Request{
		Kind:        "chat",
		Messages:    cacheMessages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
	return c.roundTrip(ctx, req, func(ctx context.Context) (string, error) {
		return c.inner.Chat(ctx, messages, options)
	})
}

func (c *CachedClient) roundTrip(ctx context.Context, req *cache.Request, call func(ctx context.Context) (string, error)) (string, error) {
	digest := cache.Fingerprint(c.inner.Provider(), c.inner.Model(), req)
	if c.cache != nil {
		if entry, ok := c.cache.Lookup(ctx, digest); ok {
			return entry.Response, nil
		}
	}

	ctx, span := tracing.StartUpstreamSpan(ctx, c.inner.Provider(), c.inner.Model())
	defer span.End()

	var response string
	err := c.policy.Do(ctx, c.inner.Provider(), func(ctx context.Context) error {
		var callErr error
		response, callErr = call(ctx)
		return callErr
	})
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.Store(ctx, digest, &cache.Entry{
			Response:        response,
			TokenCountSaved: estimateTokens(response),
		})
	}
	return response, nil
}

// Model 返回底层 Client 的模型名称
func (c *CachedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *CachedClient) Provider() string { return c.inner.Provider() }

// estimateTokens 粗略估算文本的 token 数（4 字符 ≈ 1 token）
func estimateTokens(text string) int {
	estimated := len(text) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}
