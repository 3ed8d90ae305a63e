// Package generation は外部テキスト生成APIの呼び出しと応答解析を提供する。
//
// 応答のセクション解析はヒューリスティックであり、ベストエフォートで動作する。
// 解析の失敗は呼び出しの失敗にはならず、生テキストをそのまま本文として返す。
// セクションラベルへの依存はこのパッケージ内に隔離されており、
// 呼び出し元（ライフサイクルコントローラ）は生の応答テキストを扱わない。
package generation

import "context"

// Brief はピッチ生成の入力となるユーザー作成のブリーフ。
// 4フィールド全てが入力済みであることを呼び出し元が保証する。
type Brief struct {
	Title       string
	Description string
	Audience    string
	Tone        string
}

// GeneratedText は生成APIの応答を構造化した結果。
// Contentは成功時に必ず非空。Title/Tone/Audienceは応答にセクションが
// 含まれなかった場合、元のブリーフの値にフォールバックする。
type GeneratedText struct {
	Title    string
	Tone     string
	Audience string
	Content  string
}

// Client はテキスト生成APIの抽象クライアント。差し替え・モックを容易にする。
// 1回の呼び出しにつきAPIを1回だけ呼び、内部でリトライしない。
type Client interface {
	Generate(ctx context.Context, brief Brief) (*GeneratedText, error)
}
