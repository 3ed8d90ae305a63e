package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/security"
)

// HTMLRenderer はピッチをHTMLプレビューページに変換する。
// 本文はMarkdownとして解釈し、サニタイズ済みのHTMLを埋め込む。
type HTMLRenderer struct {
	sanitizer security.ContentSanitizerService
}

// NewHTMLRenderer はHTMLRendererを生成する。
func NewHTMLRenderer(sanitizer security.ContentSanitizerService) *HTMLRenderer {
	return &HTMLRenderer{sanitizer: sanitizer}
}

// RenderHTML はピッチを単一のHTMLページとして描画する。
// 本文が空の場合はEMPTY_CONTENT、Markdown変換の失敗はRENDER_FAILEDを返す。
// 生成API由来の本文は信頼できない入力として扱い、変換後に必ずサニタイズする。
func (r *HTMLRenderer) RenderHTML(pitch *model.Pitch) ([]byte, error) {
	if strings.TrimSpace(pitch.Content) == "" {
		return nil, model.NewEmptyContentError()
	}

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(pitch.Content), &body); err != nil {
		return nil, model.NewRenderFailedError(err.Error())
	}
	safeBody := r.sanitizer.Sanitize(body.String())

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	page.WriteString("<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(pitch.Title))
	page.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&page, "<h1>%s</h1>\n", html.EscapeString(pitch.Title))
	fmt.Fprintf(&page, "<p><em>Tone: %s | Audience: %s | Updated: %s</em></p>\n",
		html.EscapeString(string(pitch.Tone)),
		html.EscapeString(pitch.Audience),
		pitch.UpdatedAt.UTC().Format("2006-01-02"))
	page.WriteString(safeBody)
	page.WriteString("\n</body>\n</html>\n")

	return page.Bytes(), nil
}
