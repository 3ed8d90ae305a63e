package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// PostgresPitchRepo はPostgreSQLを使用したピッチリポジトリ。
type PostgresPitchRepo struct {
	db *sql.DB
}

// NewPostgresPitchRepo はPostgresPitchRepoを生成する。
func NewPostgresPitchRepo(db *sql.DB) *PostgresPitchRepo {
	return &PostgresPitchRepo{db: db}
}

// FindByOwnerAndID は指定所有者のピッチを取得する。
// 見つからない場合（他ユーザー所有を含む）はnilを返す。
func (r *PostgresPitchRepo) FindByOwnerAndID(ctx context.Context, ownerID, id string) (*model.Pitch, error) {
	pitch := &model.Pitch{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, audience, tone, content, created_at, updated_at
		 FROM pitches WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(
		&pitch.ID, &pitch.OwnerID, &pitch.Title, &pitch.Description,
		&pitch.Audience, &pitch.Tone, &pitch.Content,
		&pitch.CreatedAt, &pitch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ピッチの取得に失敗しました: %w", err)
	}

	return pitch, nil
}

// ListByOwner は所有者のピッチ一覧をupdated_at降順（同値はcreated_at降順）で返す。
func (r *PostgresPitchRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Pitch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, description, audience, tone, content, created_at, updated_at
		 FROM pitches
		 WHERE owner_id = $1
		 ORDER BY updated_at DESC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ピッチ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var pitches []*model.Pitch
	for rows.Next() {
		pitch := &model.Pitch{}
		if err := rows.Scan(
			&pitch.ID, &pitch.OwnerID, &pitch.Title, &pitch.Description,
			&pitch.Audience, &pitch.Tone, &pitch.Content,
			&pitch.CreatedAt, &pitch.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ピッチ一覧の読み取りに失敗しました: %w", err)
		}
		pitches = append(pitches, pitch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ピッチ一覧の走査に失敗しました: %w", err)
	}

	return pitches, nil
}

// Create はピッチを作成し、採番したIDを返す。
// ID・created_at・updated_atはリポジトリが刻印し、呼び出し元の値は信用しない。
func (r *PostgresPitchRepo) Create(ctx context.Context, ownerID string, pitch *model.Pitch) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pitches (id, owner_id, title, description, audience, tone, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, ownerID, pitch.Title, pitch.Description, pitch.Audience,
		pitch.Tone, pitch.Content, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("ピッチの作成に失敗しました: %w", err)
	}

	return id, nil
}

// Update はピッチを部分更新する。nilフィールドは変更されない。
// updated_atは常にリポジトリが刻印する。
// idが所有者のものでない場合はfalseを返す（エラーではない）。
func (r *PostgresPitchRepo) Update(ctx context.Context, ownerID, id string, update model.PitchUpdate) (bool, error) {
	// COALESCEでnilフィールドを既存値に据え置く部分更新。
	var tone *string
	if update.Tone != nil {
		t := string(*update.Tone)
		tone = &t
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE pitches SET
		    title       = COALESCE($3, title),
		    description = COALESCE($4, description),
		    audience    = COALESCE($5, audience),
		    tone        = COALESCE($6, tone),
		    content     = COALESCE($7, content),
		    updated_at  = now()
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
		update.Title, update.Description, update.Audience, tone, update.Content,
	)
	if err != nil {
		return false, fmt.Errorf("ピッチの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// Delete は指定IDのピッチを削除する。冪等であり、存在しないIDの削除はno-op。
// 他セッションによる並行削除を許容するため、件数0はエラーとして扱わない。
func (r *PostgresPitchRepo) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pitches WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("ピッチの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PitchRepository = (*PostgresPitchRepo)(nil)
