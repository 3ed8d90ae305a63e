package generation

import (
	"regexp"
	"strings"
)

var (
	titleRe    = regexp.MustCompile(`(?i)Title:[ \t]*(.*)`)
	toneRe     = regexp.MustCompile(`(?i)Tone:[ \t]*(.*)`)
	audienceRe = regexp.MustCompile(`(?i)Audience:[ \t]*(.*)`)
	contentRe  = regexp.MustCompile(`(?is)Pitch Content:[ \t]*(.*)`)
)

// parseSections は生成APIの生テキストからTitle:/Tone:/Audience:/Pitch Content:の
// 各セクションを抽出する。解析はベストエフォートであり、決して失敗しない。
// セクションが見つからないフィールドは元のブリーフの値にフォールバックし、
// Pitch Content:が見つからない場合は生テキスト全体を本文として使用する。
func parseSections(raw string, brief Brief) *GeneratedText {
	result := &GeneratedText{
		Title:    brief.Title,
		Tone:     brief.Tone,
		Audience: brief.Audience,
	}

	if m := titleRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		result.Title = strings.TrimSpace(m[1])
	}
	if m := toneRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		result.Tone = strings.TrimSpace(m[1])
	}
	if m := audienceRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		result.Audience = strings.TrimSpace(m[1])
	}

	if m := contentRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		result.Content = strings.TrimSpace(m[1])
	} else {
		// 構造のない応答は生テキストをそのまま本文とする（前後の空白のみ除去）
		result.Content = strings.TrimSpace(raw)
	}

	return result
}
