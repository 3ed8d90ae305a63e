package generation

import (
	"context"
	"fmt"
)

// MockClient は開発・テスト用のClient実装。APIを呼ばずに決定的なテキストを返す。
// GenerateFuncを設定すると呼び出しを差し替えられる。
type MockClient struct {
	GenerateFunc func(ctx context.Context, brief Brief) (*GeneratedText, error)
}

// NewMockClient はMockClientを生成する。
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate はGenerateFuncが設定されていればそれを呼び、
// なければブリーフから組み立てた定型テキストを返す。
func (c *MockClient) Generate(ctx context.Context, brief Brief) (*GeneratedText, error) {
	if c.GenerateFunc != nil {
		return c.GenerateFunc(ctx, brief)
	}
	raw := fmt.Sprintf("Title: %s\nTone: %s\nAudience: %s\nPitch Content: %s is the %s way for %s to get things done.",
		brief.Title, brief.Tone, brief.Audience, brief.Title, brief.Tone, brief.Audience)
	return parseSections(raw, brief), nil
}

// compile-time interface check
var _ Client = (*MockClient)(nil)
