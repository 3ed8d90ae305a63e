package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/security"
)

func testPitch() *model.Pitch {
	return &model.Pitch{
		ID:        "pitch-1",
		OwnerID:   "user-1",
		Title:     "Zen",
		Audience:  "Busy professionals",
		Tone:      model.ToneFun,
		Content:   "Breathe easy with Zen.",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

// --- PDFRenderer のテスト ---

func TestRenderPDF_ProducesPDFBytes(t *testing.T) {
	r := NewPDFRenderer()

	got, err := r.RenderPDF(testPitch())
	if err != nil {
		t.Fatalf("RenderPDF がエラーを返した: %v", err)
	}
	// PDFファイルは%PDF-マジックで始まる
	if !bytes.HasPrefix(got, []byte("%PDF-")) {
		t.Errorf("出力がPDFで始まっていない: %q", got[:min(8, len(got))])
	}
}

// TestRenderPDF_Deterministic は同一のピッチから常に同一のバイト列が
// 生成されることを確認する。
func TestRenderPDF_Deterministic(t *testing.T) {
	r := NewPDFRenderer()
	p := testPitch()

	first, err := r.RenderPDF(p)
	if err != nil {
		t.Fatalf("1回目の RenderPDF がエラーを返した: %v", err)
	}
	second, err := r.RenderPDF(p)
	if err != nil {
		t.Fatalf("2回目の RenderPDF がエラーを返した: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("同一ピッチに対するPDF出力が一致しない")
	}
}

func TestRenderPDF_EmptyContent(t *testing.T) {
	r := NewPDFRenderer()
	p := testPitch()
	p.Content = "   \n  "

	_, err := r.RenderPDF(p)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyContent {
		t.Errorf("EMPTY_CONTENT が期待されるが %v だった", err)
	}
}

// TestRenderPDF_LongContentPaginates は下余白を超える本文が複数ページに
// 分割されることを確認する。
func TestRenderPDF_LongContentPaginates(t *testing.T) {
	r := NewPDFRenderer()
	p := testPitch()
	p.Content = strings.Repeat("This pitch line keeps going to fill the page.\n", 120)

	got, err := r.RenderPDF(p)
	if err != nil {
		t.Fatalf("RenderPDF がエラーを返した: %v", err)
	}

	short, err := r.RenderPDF(testPitch())
	if err != nil {
		t.Fatalf("短い本文の RenderPDF がエラーを返した: %v", err)
	}
	if len(got) <= len(short) {
		t.Errorf("長い本文のPDF（%dバイト）が短い本文（%dバイト)より大きくない", len(got), len(short))
	}
	// 2ページ目のオブジェクトが存在する
	if bytes.Count(got, []byte("/Type /Page")) < 2 {
		t.Error("長い本文で改ページが発生していない")
	}
}

// --- HTMLRenderer のテスト ---

func TestRenderHTML_ProducesSanitizedPage(t *testing.T) {
	r := NewHTMLRenderer(security.NewContentSanitizer())
	p := testPitch()
	p.Content = "**Breathe** easy.\n\n<script>alert(1)</script>"

	got, err := r.RenderHTML(p)
	if err != nil {
		t.Fatalf("RenderHTML がエラーを返した: %v", err)
	}

	html := string(got)
	if !strings.Contains(html, "<strong>Breathe</strong>") {
		t.Errorf("Markdownの強調が変換されていない: %q", html)
	}
	if strings.Contains(html, "alert(1)") {
		t.Errorf("scriptが除去されていない: %q", html)
	}
	if !strings.Contains(html, "<title>Zen</title>") {
		t.Errorf("タイトルが含まれていない: %q", html)
	}
	if !strings.Contains(html, "Tone: Fun") {
		t.Errorf("メタデータ行が含まれていない: %q", html)
	}
}

func TestRenderHTML_EscapesTitle(t *testing.T) {
	r := NewHTMLRenderer(security.NewContentSanitizer())
	p := testPitch()
	p.Title = `<img src=x onerror=alert(1)>`

	got, err := r.RenderHTML(p)
	if err != nil {
		t.Fatalf("RenderHTML がエラーを返した: %v", err)
	}
	if strings.Contains(string(got), "<img") {
		t.Errorf("タイトルがエスケープされていない: %q", got)
	}
}

func TestRenderHTML_EmptyContent(t *testing.T) {
	r := NewHTMLRenderer(security.NewContentSanitizer())
	p := testPitch()
	p.Content = ""

	_, err := r.RenderHTML(p)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyContent {
		t.Errorf("EMPTY_CONTENT が期待されるが %v だった", err)
	}
}
