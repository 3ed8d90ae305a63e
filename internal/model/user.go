// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（アイデンティティ）を表す。
// 匿名ユーザーの場合はEmailとPasswordHashが空になる。
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcryptハッシュ。匿名ユーザーは空。
	IsAnonymous  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
