// Package pitch はピッチのCRUDとライブ購読を提供する。
package pitch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/repository"
)

// Service はピッチに関するビジネスロジックを提供する。
// 全ての操作はownerIDにスコープされる。変更後はHubを通じて購読者に通知する。
type Service struct {
	repo repository.PitchRepository
	hub  *Hub
}

// NewService はServiceを生成する。hubはnilでもよい（通知なしで動作する）。
func NewService(repo repository.PitchRepository, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// List は所有者のピッチ一覧をupdated_at降順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Pitch, error) {
	pitches, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, model.NewStorageFailedError(err.Error())
	}
	return pitches, nil
}

// Get は所有者のピッチを1件取得する。
// 他ユーザー所有のピッチもPITCH_NOT_FOUNDになる（所有の有無を漏らさない）。
func (s *Service) Get(ctx context.Context, ownerID, id string) (*model.Pitch, error) {
	pitch, err := s.repo.FindByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, model.NewStorageFailedError(err.Error())
	}
	if pitch == nil {
		return nil, model.NewPitchNotFoundError(id)
	}
	return pitch, nil
}

// Create は新しいピッチを作成し、採番されたIDを返す。
// briefフィールド（title/description/audience/tone）の検証を行う。
// contentは空でもよい（生成前の下書き）。
func (s *Service) Create(ctx context.Context, ownerID string, pitch *model.Pitch) (string, error) {
	if err := validateBrief(pitch); err != nil {
		return "", err
	}

	id, err := s.repo.Create(ctx, ownerID, pitch)
	if err != nil {
		return "", model.NewStorageFailedError(err.Error())
	}

	slog.Info("pitch created",
		slog.String("pitch_id", id),
		slog.String("owner_id", ownerID),
	)

	s.publish(ctx, ownerID)
	return id, nil
}

// Update はピッチを部分更新する。nilフィールドは変更されない。
// updated_atはリポジトリが刻印する。
func (s *Service) Update(ctx context.Context, ownerID, id string, update model.PitchUpdate) error {
	if update.Tone != nil && !model.ValidTone(*update.Tone) {
		return model.NewInvalidToneError(string(*update.Tone))
	}

	found, err := s.repo.Update(ctx, ownerID, id, update)
	if err != nil {
		return model.NewStorageFailedError(err.Error())
	}
	if !found {
		return model.NewPitchNotFoundError(id)
	}

	s.publish(ctx, ownerID)
	return nil
}

// Delete はピッチを削除する。冪等であり、存在しないIDの削除はエラーにならない。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return model.NewStorageFailedError(err.Error())
	}

	slog.Info("pitch deleted",
		slog.String("pitch_id", id),
		slog.String("owner_id", ownerID),
	)

	s.publish(ctx, ownerID)
	return nil
}

// publish は所有者の購読者に最新スナップショットを配信する。
// 配信失敗は書き込み自体の成否に影響しない。
func (s *Service) publish(ctx context.Context, ownerID string) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(ctx, ownerID); err != nil {
		slog.Warn("failed to publish pitch snapshot",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}
}

// validateBrief はbriefの4フィールドが全て入力済みであることを検証する。
func validateBrief(pitch *model.Pitch) error {
	switch {
	case strings.TrimSpace(pitch.Title) == "":
		return model.NewValidationFailedError("title")
	case strings.TrimSpace(pitch.Description) == "":
		return model.NewValidationFailedError("description")
	case strings.TrimSpace(pitch.Audience) == "":
		return model.NewValidationFailedError("audience")
	case pitch.Tone == "":
		return model.NewValidationFailedError("tone")
	}
	if !model.ValidTone(pitch.Tone) {
		return model.NewInvalidToneError(string(pitch.Tone))
	}
	return nil
}
