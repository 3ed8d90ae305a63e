// Package export はピッチのPDF・HTMLエクスポートを提供する。
//
// レンダリングは同一入力に対して決定的であり、永続化された状態を変更しない。
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// PDFレイアウト定数。ページサイズ・余白・フォントメトリクスを固定し、
// 同一のピッチから常に同一のレイアウトを生成する。
const (
	pdfPageFormat   = "A4"
	pdfOrientation  = "P"
	pdfUnit         = "mm"
	pdfMargin       = 20.0
	pdfTitleSize    = 20.0
	pdfMetaSize     = 10.0
	pdfBodySize     = 12.0
	pdfFooterSize   = 8.0
	pdfBodyLineHt   = 6.0
	pdfTitleGap     = 4.0
	pdfMetaGap      = 10.0
	pdfFooterOffset = 15.0
)

// PDFRenderer はピッチをPDFバイト列に変換する。
type PDFRenderer struct{}

// NewPDFRenderer はPDFRendererを生成する。
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// RenderPDF はピッチをA4縦のPDFに描画してバイト列を返す。
// 本文は行単位で折り返し、次の行が下余白を超える場合に改ページする。
// タイトルブロック・メタデータ行・フッターは毎回同一の位置に描画される。
// 本文が空の場合はEMPTY_CONTENT、描画失敗はRENDER_FAILEDを返す。
func (r *PDFRenderer) RenderPDF(pitch *model.Pitch) ([]byte, error) {
	if strings.TrimSpace(pitch.Content) == "" {
		return nil, model.NewEmptyContentError()
	}

	pdf := gofpdf.New(pdfOrientation, pdfUnit, pdfPageFormat, "")
	// 作成日時を固定しないと同一入力でもバイト列が変わる
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	// フォント辞書をソートしないとオブジェクト順がマップ順で変わる
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfFooterOffset)
		pdf.SetFont("Helvetica", "I", pdfFooterSize)
		pdf.CellFormat(0, 10,
			fmt.Sprintf("PitchCraft - Page %d", pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pdfMargin
	bottomY := pageH - pdfMargin - pdfFooterOffset

	// タイトルブロック
	pdf.SetFont("Helvetica", "B", pdfTitleSize)
	pdf.MultiCell(contentW, 10, pitch.Title, "", "L", false)
	pdf.Ln(pdfTitleGap)

	// メタデータ行
	pdf.SetFont("Helvetica", "I", pdfMetaSize)
	meta := fmt.Sprintf("Tone: %s | Audience: %s | Updated: %s",
		pitch.Tone, pitch.Audience, pitch.UpdatedAt.UTC().Format("2006-01-02"))
	pdf.MultiCell(contentW, 5, meta, "", "L", false)
	pdf.Ln(pdfMetaGap - 5)

	// 本文: 折り返した各行の高さを残り縦スペースと比較し、
	// 下余白を超える行の前で改ページする
	pdf.SetFont("Helvetica", "", pdfBodySize)
	for _, paragraph := range strings.Split(pitch.Content, "\n") {
		if paragraph == "" {
			pdf.Ln(pdfBodyLineHt / 2)
			continue
		}
		for _, line := range pdf.SplitText(paragraph, contentW) {
			if pdf.GetY()+pdfBodyLineHt > bottomY {
				pdf.AddPage()
				pdf.SetFont("Helvetica", "", pdfBodySize)
			}
			pdf.CellFormat(contentW, pdfBodyLineHt, line, "", 1, "L", false, 0, "")
		}
	}

	if pdf.Err() {
		return nil, model.NewRenderFailedError(pdf.Error().Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, model.NewRenderFailedError(err.Error())
	}
	return buf.Bytes(), nil
}
