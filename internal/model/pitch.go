// Package model はドメインモデルを定義する。
package model

import "time"

// Pitch はAI生成・編集されたスタートアップピッチを表す永続エンティティ。
// 全ての読み書きはOwnerID == 現在のユーザーIDにスコープされる。
type Pitch struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Audience    string
	Tone        Tone
	Content     string // AI生成（＋手動編集）されたピッチ本文。生成前は空。
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tone はピッチの語調を表す。
type Tone string

const (
	// TonePersuasive は説得的な語調。デフォルト。
	TonePersuasive Tone = "Persuasive"
	// ToneFormal はフォーマルな語調。
	ToneFormal Tone = "Formal"
	// ToneFun はカジュアルで楽しい語調。
	ToneFun Tone = "Fun"
	// ToneInspiring はビジョナリーで鼓舞する語調。
	ToneInspiring Tone = "Inspiring"
)

// ValidTone は指定された語調が定義済みの値かどうかを返す。
func ValidTone(t Tone) bool {
	switch t {
	case TonePersuasive, ToneFormal, ToneFun, ToneInspiring:
		return true
	}
	return false
}

// PitchUpdate はピッチの部分更新を表す。
// nilフィールドは変更されない。UpdatedAtはリポジトリが必ず刻印するため含まない。
type PitchUpdate struct {
	Title       *string
	Description *string
	Audience    *string
	Tone        *Tone
	Content     *string
}
