package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/lifecycle"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/metrics"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/middleware"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/pitch"
)

// PitchServiceInterface はピッチハンドラーが必要とするサービスインターフェース。
type PitchServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Pitch, error)
	Get(ctx context.Context, ownerID, id string) (*model.Pitch, error)
	Create(ctx context.Context, ownerID string, pitch *model.Pitch) (string, error)
	Update(ctx context.Context, ownerID, id string, update model.PitchUpdate) error
	Delete(ctx context.Context, ownerID, id string) error
}

// SnapshotSubscriber はライブ購読のためのインターフェース。
// pitch.Hubの部分集合として定義する。
type SnapshotSubscriber interface {
	Subscribe(ctx context.Context, ownerID string, callback func(pitch.Snapshot)) (func(), error)
}

// ControllerFactory はリクエストごとのライフサイクルコントローラを生成する。
// コントローラはドラフト1つにつき1インスタンスであり、HTTPリクエストが
// 1つのドラフトセッションに対応する。
type ControllerFactory func() *lifecycle.Controller

// PitchHandler はピッチ管理のHTTPハンドラー。
type PitchHandler struct {
	service       PitchServiceInterface
	subscriber    SnapshotSubscriber
	newController ControllerFactory
	collector     metrics.MetricsCollector
}

// NewPitchHandler はPitchHandlerを生成する。collectorはnilでもよい。
func NewPitchHandler(service PitchServiceInterface, subscriber SnapshotSubscriber, factory ControllerFactory, collector metrics.MetricsCollector) *PitchHandler {
	return &PitchHandler{
		service:       service,
		subscriber:    subscriber,
		newController: factory,
		collector:     collector,
	}
}

// createPitchRequest はピッチ作成リクエストのボディ。
type createPitchRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Audience    string `json:"audience"`
	Tone        string `json:"tone"`
	Content     string `json:"content"`
}

// updatePitchRequest はピッチ部分更新リクエストのボディ。
// nilのフィールドは変更されない。
type updatePitchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Audience    *string `json:"audience"`
	Tone        *string `json:"tone"`
	Content     *string `json:"content"`
}

// pitchResponse はピッチ情報のAPIレスポンス。
type pitchResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Audience    string `json:"audience"`
	Tone        string `json:"tone"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toPitchResponse(p *model.Pitch) pitchResponse {
	return pitchResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Audience:    p.Audience,
		Tone:        string(p.Tone),
		Content:     p.Content,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ListPitches は所有者のピッチ一覧を更新日時の新しい順で返す。
// GET /api/pitches
func (h *PitchHandler) ListPitches(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	pitches, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]pitchResponse, len(pitches))
	for i, p := range pitches {
		responses[i] = toPitchResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetPitch はピッチ詳細を取得する。
// GET /api/pitches/{id}
func (h *PitchHandler) GetPitch(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), ownerID, pitchID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPitchResponse(p))
}

// CreatePitch はピッチを作成する。本文は空でもよい（生成前の状態）。
// POST /api/pitches
func (h *PitchHandler) CreatePitch(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createPitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	p := &model.Pitch{
		Title:       req.Title,
		Description: req.Description,
		Audience:    req.Audience,
		Tone:        model.Tone(req.Tone),
		Content:     req.Content,
	}
	id, err := h.service.Create(r.Context(), ownerID, p)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordPitchCreated()
	}

	created, err := h.service.Get(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPitchResponse(created))
}

// UpdatePitch はピッチを部分更新する。指定されなかったフィールドは変更されない。
// PATCH /api/pitches/{id}
func (h *PitchHandler) UpdatePitch(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	var req updatePitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	update := model.PitchUpdate{
		Title:       req.Title,
		Description: req.Description,
		Audience:    req.Audience,
		Content:     req.Content,
	}
	if req.Tone != nil {
		tone := model.Tone(*req.Tone)
		if !model.ValidTone(tone) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidToneError(*req.Tone))
			return
		}
		update.Tone = &tone
	}

	if err := h.service.Update(r.Context(), ownerID, pitchID, update); err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.Get(r.Context(), ownerID, pitchID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPitchResponse(updated))
}

// DeletePitch はピッチを削除する。冪等であり、存在しないIDでも204を返す。
// DELETE /api/pitches/{id}
func (h *PitchHandler) DeletePitch(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), ownerID, pitchID); err != nil {
		handleServiceError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordPitchDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}

// GeneratePitch は既存ピッチのブリーフから本文を生成して保存する。
// ドラフトをピッチの現在の状態から初期化し、生成・保存のライフサイクルを
// 1リクエスト内で実行する。生成失敗時はピッチは変更されない。
// POST /api/pitches/{id}/generate
func (h *PitchHandler) GeneratePitch(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	pitchID := chi.URLParam(r, "id")

	c := h.newController()
	if _, err := c.Compose(r.Context(), ownerID, pitchID); err != nil {
		handleServiceError(w, err)
		return
	}

	start := time.Now()
	_, genErr := c.Generate(r.Context(), ownerID)
	if h.collector != nil {
		h.collector.RecordGenerationLatency(time.Since(start))
	}
	if genErr != nil {
		if h.collector != nil {
			h.collector.RecordGenerationFailure(errorCode(genErr))
		}
		handleServiceError(w, genErr)
		return
	}
	if h.collector != nil {
		h.collector.RecordGenerationSuccess()
	}

	savedID, err := c.Save(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	saved, err := h.service.Get(r.Context(), ownerID, savedID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPitchResponse(saved))
}

// StreamPitches は所有者のピッチ一覧のライブスナップショットをSSEで配信する。
// 接続直後に現在のスナップショットを1回配信し、以後は変更のたびに
// 一覧全体を配信する。クライアントの切断で購読を解除する。
// GET /api/pitches/stream
func (h *PitchHandler) StreamPitches(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "ストリーミングに対応していない接続です。",
			Category: "system",
			Action:   "接続方法を確認してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// スナップショットはコールバックから直接書かず、チャネル経由で
	// このハンドラーゴルーチンに集約する
	snapshots := make(chan pitch.Snapshot, 8)
	unsubscribe, err := h.subscriber.Subscribe(r.Context(), ownerID, func(s pitch.Snapshot) {
		select {
		case snapshots <- s:
		default:
			// 遅いクライアントは次のスナップショットで追いつく
		}
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot := <-snapshots:
			responses := make([]pitchResponse, len(snapshot))
			for i, p := range snapshot {
				responses[i] = toPitchResponse(p)
			}
			data, err := json.Marshal(responses)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: pitches\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// errorCode はエラーからAPIErrorコードを取り出す。メトリクスのラベル用。
func errorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "INTERNAL_ERROR"
}
