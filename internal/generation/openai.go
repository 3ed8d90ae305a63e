package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// openaiSystemPrompt はOpenAI版で使用するシステムメッセージ。
// 出力フォーマットの指示自体はユーザープロンプト側（BuildPrompt）が担う。
const openaiSystemPrompt = "You are a startup pitch writer. Follow the requested output format exactly."

// OpenAIConfig はOpenAIクライアントの設定。
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string        // 互換APIのエンドポイント上書き。空なら公式。
	Timeout time.Duration // 1回の生成呼び出しの上限。0なら30秒。
}

// OpenAIClient はOpenAI chat completions APIを使用したClient実装。
type OpenAIClient struct {
	client openai.Client
	logger *slog.Logger
	config OpenAIConfig
}

// NewOpenAIClient はOpenAIClientを生成する。
func NewOpenAIClient(logger *slog.Logger, config OpenAIConfig) *OpenAIClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		logger: logger,
		config: config,
	}
}

// Generate はブリーフからプロンプトを組み立ててchat completionsを1回呼び出し、
// 応答をGeneratedTextに構造化して返す。内部でリトライしない。
func (c *OpenAIClient) Generate(ctx context.Context, brief Brief) (*GeneratedText, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openaiSystemPrompt),
			openai.UserMessage(BuildPrompt(brief)),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("generation request timed out",
				slog.Duration("timeout", c.config.Timeout),
			)
			return nil, model.NewGenerationTimeoutError()
		}
		c.logger.Error("generation request failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewGenerationNetworkError(err.Error())
	}

	// 空白のみの応答も空応答として扱う
	var text string
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		c.logger.Warn("generation API returned no text")
		return nil, model.NewGenerationEmptyError()
	}

	c.logger.Info("pitch generated",
		slog.Int("response_chars", len(text)),
		slog.Duration("latency", time.Since(start)),
	)

	return parseSections(text, brief), nil
}

// compile-time interface check
var _ Client = (*OpenAIClient)(nil)
