package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/metrics"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/middleware"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// PitchFinder はエクスポート対象ピッチの取得インターフェース。
// PitchServiceInterfaceの部分集合として定義する。
type PitchFinder interface {
	Get(ctx context.Context, ownerID, id string) (*model.Pitch, error)
}

// PDFRendererInterface はPDF描画のインターフェース。
type PDFRendererInterface interface {
	RenderPDF(pitch *model.Pitch) ([]byte, error)
}

// HTMLRendererInterface はHTMLプレビュー描画のインターフェース。
type HTMLRendererInterface interface {
	RenderHTML(pitch *model.Pitch) ([]byte, error)
}

// ExportHandler はピッチのエクスポートを処理するHTTPハンドラー。
// エクスポートは永続化された状態を変更しない読み取り専用操作。
type ExportHandler struct {
	finder    PitchFinder
	pdf       PDFRendererInterface
	html      HTMLRendererInterface
	collector metrics.MetricsCollector
}

// NewExportHandler はExportHandlerを生成する。collectorはnilでもよい。
func NewExportHandler(finder PitchFinder, pdf PDFRendererInterface, html HTMLRendererInterface, collector metrics.MetricsCollector) *ExportHandler {
	return &ExportHandler{
		finder:    finder,
		pdf:       pdf,
		html:      html,
		collector: collector,
	}
}

// ExportPDF はピッチをPDFとしてダウンロードさせる。
// GET /api/pitches/{id}/export
func (h *ExportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	p, err := h.finder.Get(r.Context(), ownerID, pitchID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data, err := h.pdf.RenderPDF(p)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordExport("pdf")
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfFilename(p.Title)))
	w.Write(data)
}

// PreviewHTML はピッチのサニタイズ済みHTMLプレビューを返す。
// GET /api/pitches/{id}/preview
func (h *ExportHandler) PreviewHTML(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	p, err := h.finder.Get(r.Context(), ownerID, pitchID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	page, err := h.html.RenderHTML(p)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordExport("html")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// pdfFilename はピッチタイトルからダウンロードファイル名を組み立てる。
// ヘッダーに安全な文字のみ残す。
func pdfFilename(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" {
		name = "pitch"
	}
	return name + ".pdf"
}
