package generation

import (
	"fmt"
	"strings"
)

// BuildPrompt はブリーフから決定的なプロンプトを組み立てる。
// 同一のブリーフに対して常に同一の文字列を返す（このコンポーネントは乱数を持ち込まない）。
// 応答のセクションラベル（Title:/Tone:/Audience:/Pitch Content:）は
// parse.goの解析と対になっている。
func BuildPrompt(brief Brief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate a startup pitch for an app called %q.\n", brief.Title))
	sb.WriteString(fmt.Sprintf("Tone: %s\n", brief.Tone))
	sb.WriteString(fmt.Sprintf("Audience: %s\n", brief.Audience))
	sb.WriteString(fmt.Sprintf("Description: %s\n", brief.Description))
	sb.WriteString("Format response like:\n")
	sb.WriteString("Title:\n")
	sb.WriteString("Tone:\n")
	sb.WriteString("Audience:\n")
	sb.WriteString("Pitch Content:\n")
	return sb.String()
}
