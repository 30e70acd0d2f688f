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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"assist-platform/internal/retry"
)

// ClaudeClient Claude 客户端
type ClaudeClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewClaudeClient 创建新的 Claude 客户端。
// resty 自带重试关闭：瞬态/永久分类与退避由 internal/retry 统一负责
func NewClaudeClient(model, apiKey, baseURL string) (*ClaudeClient, error) {
	if model == "" {
		model = "claude-3-opus-20240229"
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)

	return &ClaudeClient{
		provider: "claude",
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

// Generate 单轮生成
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, options)
}

// Chat 多轮对话
func (c *ClaudeClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	claudeMessages := make([]map[string]string, len(messages))
	for i, msg := range messages {
		claudeMessages[i] = map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		}
	}

	request := map[string]interface{}{
		"model":          c.model,
		"messages":       claudeMessages,
		"temperature":    options.Temperature,
		"max_tokens":     options.MaxTokens,
		"stop_sequences": options.Stop,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(request).
		Post(c.baseURL + "/messages")

	if err != nil {
		// 网络层失败（连接、超时）按瞬态处理
		return "", retry.Transient(fmt.Errorf("调用 Claude API 失败: %w", err))
	}
	if response.StatusCode() != http.StatusOK {
		return "", classifyStatus(response.StatusCode(), "Claude", response.String())
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", retry.Permanent(fmt.Errorf("解析 Claude 响应失败: %w", err))
	}
	if len(result.Content) == 0 {
		return "", retry.Permanent(fmt.Errorf("Claude API 没有返回结果"))
	}
	return result.Content[0].Text, nil
}

// Model 返回模型名称
func (c *ClaudeClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string { return c.provider }

// classifyStatus 按 HTTP 状态码做瞬态/永久分类：限流与服务端错误可重试，
// 请求格式与鉴权错误立即上报
func classifyStatus(code int, provider, body string) error {
	err := fmt.Errorf("%s API 返回错误 (%d): %s", provider, code, body)
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return retry.Transient(err)
	}
	return retry.Permanent(err)
}
