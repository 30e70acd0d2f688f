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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Message 请求中的一条对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 可指纹化的上游请求。已知请求形态的标记结构，不做运行时 duck-typing：
// Kind 区分单轮生成与多轮对话，字段零值在序列化时被省略，保证语义等价的请求
// 产生相同的规范形
type Request struct {
	Kind        string    `json:"kind"` // generate | chat
	Prompt      string    `json:"prompt,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

// Fingerprint 计算 (provider, model, 规范化请求) 的确定性指纹。
// 结构体序列化字段顺序固定、map 键有序，语义相同的请求无论调用方如何拼装
// 都得到同一 digest；SHA-256 保证抗碰撞。
// Digest = SHA256(provider|model|canonicalJSON)
func Fingerprint(provider, model string, req *Request) string {
	canonical, err := json.Marshal(req)
	if err != nil {
		// Request 全部为可序列化标量与切片，Marshal 不会失败；空形兜底
		canonical = []byte("{}")
	}
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte("|"))
	h.Write([]byte(model))
	h.Write([]byte("|"))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
