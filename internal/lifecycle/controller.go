// Package lifecycle はピッチ作成・編集のドラフトライフサイクルを管理する。
//
// コントローラはドラフトの唯一の書き込み主体であり、生成・保存の
// ネットワーク呼び出しを同一ドラフトに対して同時に1つしか進行させない。
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/generation"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/pitch"
)

// State はドラフトライフサイクルの状態。
type State string

const (
	StateIdle       State = "idle"
	StateComposing  State = "composing"
	StateGenerating State = "generating"
	StateReviewing  State = "reviewing"
	StateSaving     State = "saving"
	StateSaved      State = "saved"
	StateError      State = "error"
)

// Draft はコントローラが保持する未保存のピッチ。
// SourcePitchIDが空でなければ既存ピッチの編集、空なら新規作成を表す。
type Draft struct {
	SourcePitchID string
	Title         string
	Description   string
	Audience      string
	Tone          model.Tone
	Content       string
}

// Controller はドラフトの状態遷移を直列化して実行する。
// 1インスタンスにつき同時に存在できるドラフトは最大1つで、
// 新しい作成セッションの開始は前のドラフトを破棄する（マージはしない）。
type Controller struct {
	pitches   *pitch.Service
	generator generation.Client
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	draft   *Draft
	draftID string // 現在のドラフトの識別子。生成結果の適用可否判定に使う。
	genID   string // 進行中の生成呼び出しの識別子。
}

// NewController はControllerを生成する。初期状態はIdle。
func NewController(pitches *pitch.Service, generator generation.Client, logger *slog.Logger) *Controller {
	return &Controller{
		pitches:   pitches,
		generator: generator,
		logger:    logger,
		state:     StateIdle,
	}
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft は現在のドラフトのコピーを返す。ドラフトが無ければnil。
func (c *Controller) Draft() *Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return nil
	}
	copied := *c.draft
	return &copied
}

// Compose は作成・編集セッションを開始してComposingに遷移する。
// sourcePitchIDが指定された場合はリポジトリの現在のスナップショットから
// ドラフトを初期化する。未保存のドラフトが残っていても破棄して置き換える。
// 進行中の生成呼び出しがあれば、その結果は以後適用されない。
func (c *Controller) Compose(ctx context.Context, ownerID, sourcePitchID string) (*Draft, error) {
	draft := &Draft{}
	if sourcePitchID != "" {
		p, err := c.pitches.Get(ctx, ownerID, sourcePitchID)
		if err != nil {
			return nil, err
		}
		draft = &Draft{
			SourcePitchID: p.ID,
			Title:         p.Title,
			Description:   p.Description,
			Audience:      p.Audience,
			Tone:          p.Tone,
			Content:       p.Content,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft != nil {
		c.logger.Info("unsaved draft discarded",
			slog.String("state", string(c.state)),
		)
	}

	c.draft = draft
	c.draftID = uuid.New().String()
	c.genID = ""
	c.state = StateComposing

	copied := *draft
	return &copied, nil
}

// SetBrief はドラフトのブリーフ4フィールドを更新する。
// Composing・Reviewing・Errorでのみ許可される（ローカル操作、ネットワーク呼び出しなし）。
func (c *Controller) SetBrief(title, description, audience string, tone model.Tone) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateComposing, StateReviewing, StateError:
	default:
		return model.NewInvalidDraftStateError("set_brief", string(c.state))
	}

	c.draft.Title = title
	c.draft.Description = description
	c.draft.Audience = audience
	c.draft.Tone = tone
	return nil
}

// Generate はドラフトのブリーフから生成APIを呼び出し、成功時に
// ドラフト本文（および必要に応じてタイトル・語調・ターゲット）を上書きして
// Reviewingに遷移する。失敗時はドラフトを変更せずErrorに遷移し、
// 同じブリーフでの再実行を許可する。
//
// ブリーフに空フィールドがある場合は状態を遷移させずにValidationErrorを返す。
// 呼び出し中に別のセッションが開始された場合、遅れて届いた結果は破棄される。
func (c *Controller) Generate(ctx context.Context, ownerID string) (*Draft, error) {
	c.mu.Lock()

	switch c.state {
	case StateComposing, StateReviewing, StateError:
	default:
		c.mu.Unlock()
		return nil, model.NewInvalidDraftStateError("generate", string(c.state))
	}

	if err := c.validateBriefLocked(); err != nil {
		// 入力不備は状態遷移を起こさない
		c.mu.Unlock()
		return nil, err
	}

	brief := generation.Brief{
		Title:       c.draft.Title,
		Description: c.draft.Description,
		Audience:    c.draft.Audience,
		Tone:        string(c.draft.Tone),
	}
	prevState := c.state
	draftID := c.draftID
	genID := uuid.New().String()
	c.genID = genID
	c.state = StateGenerating
	c.mu.Unlock()

	result, genErr := c.generator.Generate(ctx, brief)

	c.mu.Lock()
	defer c.mu.Unlock()

	// 呼び出し中にドラフトが置き換えられた・生成がやり直された場合は
	// この結果を適用しない
	if c.draftID != draftID || c.genID != genID {
		c.logger.Info("stale generation result discarded",
			slog.String("owner_id", ownerID),
		)
		if genErr != nil {
			return nil, genErr
		}
		return nil, model.NewInvalidDraftStateError("generate", string(c.state))
	}
	c.genID = ""

	if genErr != nil {
		c.state = StateError
		c.logger.Warn("generation failed",
			slog.String("owner_id", ownerID),
			slog.String("previous_state", string(prevState)),
			slog.String("error", genErr.Error()),
		)
		return nil, genErr
	}

	c.draft.Title = result.Title
	c.draft.Audience = result.Audience
	c.draft.Content = result.Content
	// 応答の語調は自由テキストなので、定義済みの語調のときだけ採用する
	if model.ValidTone(model.Tone(result.Tone)) {
		c.draft.Tone = model.Tone(result.Tone)
	}
	c.state = StateReviewing

	copied := *c.draft
	return &copied, nil
}

// EditContent はレビュー中のドラフト本文を手動編集で上書きする。
// ローカル操作であり、Reviewingに留まる。
func (c *Controller) EditContent(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReviewing {
		return model.NewInvalidDraftStateError("edit_content", string(c.state))
	}
	c.draft.Content = content
	return nil
}

// Save はレビュー済みのドラフトを永続化する。SourcePitchIDが設定されていれば
// 既存ピッチの更新、なければ新規作成になる。成功時はドラフトを破棄して
// Savedに遷移する。失敗時はドラフトを保持したままReviewingに戻り、
// エラーを呼び出し元に返す（ドラフト内容を黙って失わない）。
func (c *Controller) Save(ctx context.Context, ownerID string) (string, error) {
	c.mu.Lock()

	if c.state != StateReviewing {
		c.mu.Unlock()
		return "", model.NewInvalidDraftStateError("save", string(c.state))
	}

	draft := *c.draft
	draftID := c.draftID
	c.state = StateSaving
	c.mu.Unlock()

	pitchID, saveErr := c.persist(ctx, ownerID, &draft)

	c.mu.Lock()
	defer c.mu.Unlock()

	// 保存中にドラフトが置き換えられていた場合は状態に触らない
	if c.draftID != draftID {
		if saveErr != nil {
			return "", saveErr
		}
		return pitchID, nil
	}

	if saveErr != nil {
		c.state = StateReviewing
		c.logger.Warn("draft save failed",
			slog.String("owner_id", ownerID),
			slog.String("error", saveErr.Error()),
		)
		return "", saveErr
	}

	c.draft = nil
	c.draftID = ""
	c.state = StateSaved
	return pitchID, nil
}

// persist はドラフトをリポジトリ操作に変換する。
func (c *Controller) persist(ctx context.Context, ownerID string, draft *Draft) (string, error) {
	if draft.SourcePitchID != "" {
		update := model.PitchUpdate{
			Title:       &draft.Title,
			Description: &draft.Description,
			Audience:    &draft.Audience,
			Tone:        &draft.Tone,
			Content:     &draft.Content,
		}
		if err := c.pitches.Update(ctx, ownerID, draft.SourcePitchID, update); err != nil {
			return "", err
		}
		return draft.SourcePitchID, nil
	}

	p := &model.Pitch{
		Title:       draft.Title,
		Description: draft.Description,
		Audience:    draft.Audience,
		Tone:        draft.Tone,
		Content:     draft.Content,
	}
	id, err := c.pitches.Create(ctx, ownerID, p)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Reset はドラフトを破棄してIdleに戻す（一覧画面への遷移に相当）。
// 進行中の生成・保存の結果は以後適用されない。
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = nil
	c.draftID = ""
	c.genID = ""
	c.state = StateIdle
}

// validateBriefLocked はブリーフ4フィールドの入力を検証する。呼び出し側がロックを保持する。
func (c *Controller) validateBriefLocked() error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", c.draft.Title},
		{"description", c.draft.Description},
		{"audience", c.draft.Audience},
		{"tone", string(c.draft.Tone)},
	} {
		if f.value == "" {
			return model.NewValidationFailedError(f.name)
		}
	}
	if !model.ValidTone(c.draft.Tone) {
		return model.NewInvalidToneError(string(c.draft.Tone))
	}
	return nil
}
