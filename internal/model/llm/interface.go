package llm

import (
	"context"
	"fmt"
)

// Client LLM 客户端接口。所有调用都带 context（上游调用是主要成本与延迟来源，
// 必须可超时）
type Client interface {
	// Generate 单轮生成
	Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error)
	// Chat 多轮对话
	Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// NewClient 创建新的 LLM 客户端；baseURL 用于 OpenAI 兼容端点，空则用默认
func NewClient(provider, model, apiKey, baseURL string) (Client, error) {
	switch provider {
	case "claude":
		return NewClaudeClient(model, apiKey, baseURL)
	case "openai", "":
		return NewOpenAIClient(model, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
