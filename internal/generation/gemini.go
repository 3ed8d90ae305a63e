package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

const (
	// defaultGeminiEndpoint はGemini generateContent APIのエンドポイントのフォーマット。
	// %sにモデル名が入る。
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

	// geminiTextPath は応答JSON内の生成テキストのパス。
	// このパスが存在しない応答は空応答として扱う（パースエラーではない）。
	geminiTextPath = "candidates.0.content.parts.0.text"
)

// GeminiConfig はGeminiクライアントの設定。
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string        // テスト・プロキシ用の上書き。空ならデフォルト。
	Timeout  time.Duration // 1回の生成呼び出しの上限。0なら30秒。
}

// GeminiClient はGemini generateContent APIを使用したClient実装。
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     GeminiConfig
}

// NewGeminiClient はGeminiClientを生成する。
func NewGeminiClient(httpClient *http.Client, logger *slog.Logger, config GeminiConfig) *GeminiClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &GeminiClient{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// geminiRequest はgenerateContent APIのリクエストボディ。
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Generate はブリーフからプロンプトを組み立ててGemini APIを1回呼び出し、
// 応答をGeneratedTextに構造化して返す。内部でリトライしない。
func (c *GeminiClient) Generate(ctx context.Context, brief Brief) (*GeneratedText, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	prompt := BuildPrompt(brief)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの構築に失敗しました: %w", err)
	}

	endpoint := c.config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(defaultGeminiEndpoint, c.config.Model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+c.config.APIKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
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
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("generation API returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewGenerationServiceError(resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewGenerationNetworkError(err.Error())
	}

	// テキストパスの欠如と空白のみの応答は空応答条件であり、パースエラーではない
	text := strings.TrimSpace(gjson.GetBytes(respBody, geminiTextPath).String())
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
var _ Client = (*GeminiClient)(nil)
