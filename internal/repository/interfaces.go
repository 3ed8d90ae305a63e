// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、pitchesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れ・未登録の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PitchRepository はピッチデータの永続化インターフェース。
// 全ての操作はownerIDにスコープされ、他ユーザーのピッチには到達できない。
type PitchRepository interface {
	// FindByOwnerAndID は指定所有者のピッチを取得する。
	// 見つからない場合（他ユーザー所有を含む）はnilを返す。
	FindByOwnerAndID(ctx context.Context, ownerID, id string) (*model.Pitch, error)

	// ListByOwner は所有者のピッチ一覧をupdated_at降順（同値はcreated_at降順）で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Pitch, error)

	// Create はピッチを作成し、採番したIDを返す。
	// ID・created_at・updated_atはリポジトリが刻印し、呼び出し元の値は信用しない。
	Create(ctx context.Context, ownerID string, pitch *model.Pitch) (string, error)

	// Update はピッチを部分更新する。nilフィールドは変更されない。
	// updated_atは常にリポジトリが刻印する。
	// idが所有者のものでない場合はfalseを返す（エラーではない）。
	Update(ctx context.Context, ownerID, id string, update model.PitchUpdate) (bool, error)

	// Delete は指定IDのピッチを削除する。冪等であり、存在しないIDの削除はno-op。
	Delete(ctx context.Context, ownerID, id string) error
}
