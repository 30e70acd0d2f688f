package cache

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	req := &Request{Kind: "chat", Messages: []Message{{Role: "user", Content: "hi"}}, Temperature: 0.7}
	a := Fingerprint("claude", "claude-sonnet", req)
	b := Fingerprint("claude", "claude-sonnet", &Request{Kind: "chat", Messages: []Message{{Role: "user", Content: "hi"}}, Temperature: 0.7})
	if a != b {
		t.Errorf("equivalent requests must share a digest: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest should be hex sha256, got %q", a)
	}
}

func TestFingerprint_Distinct(t *testing.T) {
	base := &Request{Kind: "generate", Prompt: "hi"}
	baseDigest := Fingerprint("claude", "claude-sonnet", base)

	cases := []struct {
		name     string
		provider string
		model    string
		req      *Request
	}{
		{"provider", "openai", "claude-sonnet", base},
		{"model", "claude", "claude-haiku", base},
		{"prompt", "claude", "claude-sonnet", &Request{Kind: "generate", Prompt: "bye"}},
		{"temperature", "claude", "claude-sonnet", &Request{Kind: "generate", Prompt: "hi", Temperature: 0.5}},
		{"kind", "claude", "claude-sonnet", &Request{Kind: "chat", Prompt: "hi"}},
	}
	for _, tc := range cases {
		if d := Fingerprint(tc.provider, tc.model, tc.req); d == baseDigest {
			t.Errorf("%s: digest should differ from base", tc.name)
		}
	}
}

func TestFingerprint_ZeroFieldsCanonical(t *testing.T) {
	// 显式零值与缺省必须产生同一规范形
	a := Fingerprint("claude", "m", &Request{Kind: "generate", Prompt: "p"})
	b := Fingerprint("claude", "m", &Request{Kind: "generate", Prompt: "p", MaxTokens: 0, Stop: nil})
	if a != b {
		t.Errorf("zero-valued fields must not change the digest: %s vs %s", a, b)
	}
}
