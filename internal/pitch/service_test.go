package pitch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/repository"
)

// --- モック定義 ---

// memPitchRepo はテスト用のインメモリPitchRepository実装。
// リポジトリ契約（ID採番、updated_at刻印、所有者スコープ、冪等削除）を再現する。
type memPitchRepo struct {
	mu      sync.Mutex
	pitches map[string]*model.Pitch
	nextID  int
	clock   time.Time

	failNext error // 次の操作を失敗させる（nilなら正常動作）
}

func newMemPitchRepo() *memPitchRepo {
	return &memPitchRepo{
		pitches: make(map[string]*model.Pitch),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick は単調増加するタイムスタンプを返す。順序検証を決定的にするため。
func (m *memPitchRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memPitchRepo) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memPitchRepo) FindByOwnerAndID(ctx context.Context, ownerID, id string) (*model.Pitch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	p, ok := m.pitches[id]
	if !ok || p.OwnerID != ownerID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPitchRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Pitch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	var result []*model.Pitch
	for _, p := range m.pitches {
		if p.OwnerID == ownerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memPitchRepo) Create(ctx context.Context, ownerID string, pitch *model.Pitch) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return "", err
	}
	m.nextID++
	id := fmt.Sprintf("pitch-%d", m.nextID)
	now := m.tick()
	m.pitches[id] = &model.Pitch{
		ID:          id,
		OwnerID:     ownerID,
		Title:       pitch.Title,
		Description: pitch.Description,
		Audience:    pitch.Audience,
		Tone:        pitch.Tone,
		Content:     pitch.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return id, nil
}

func (m *memPitchRepo) Update(ctx context.Context, ownerID, id string, update model.PitchUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return false, err
	}
	p, ok := m.pitches[id]
	if !ok || p.OwnerID != ownerID {
		return false, nil
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Audience != nil {
		p.Audience = *update.Audience
	}
	if update.Tone != nil {
		p.Tone = *update.Tone
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	p.UpdatedAt = m.tick()
	return true, nil
}

func (m *memPitchRepo) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	p, ok := m.pitches[id]
	if ok && p.OwnerID == ownerID {
		delete(m.pitches, id)
	}
	return nil
}

var _ repository.PitchRepository = (*memPitchRepo)(nil)

func validBrief() *model.Pitch {
	return &model.Pitch{
		Title:       "Zen",
		Description: "Calm app",
		Audience:    "Busy professionals",
		Tone:        model.ToneFun,
	}
}

// --- テスト ---

// 作成したピッチが購読スナップショット経由で同一内容で取得できることを検証（往復）
func TestService_CreateThenList_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	svc := NewService(repo, nil)

	brief := validBrief()
	// クライアント側のタイムスタンプは信用されない
	brief.UpdatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := svc.Create(ctx, "user-1", brief)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	pitches, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(pitches) != 1 {
		t.Fatalf("len(pitches) = %d, want 1", len(pitches))
	}

	got := pitches[0]
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if got.Title != "Zen" || got.Description != "Calm app" ||
		got.Audience != "Busy professionals" || got.Tone != model.ToneFun {
		t.Errorf("brief fields not preserved: %+v", got)
	}
	// updated_atはリポジトリが刻印する
	if got.UpdatedAt.Equal(brief.UpdatedAt) {
		t.Error("UpdatedAt should be stamped by the repository, not taken from the caller")
	}
}

// brief未入力でCreateがVALIDATION_FAILEDを返すことを検証
func TestService_Create_MissingBriefField_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemPitchRepo(), nil)

	cases := []struct {
		name   string
		mutate func(*model.Pitch)
	}{
		{"empty title", func(p *model.Pitch) { p.Title = "" }},
		{"empty description", func(p *model.Pitch) { p.Description = "  " }},
		{"empty audience", func(p *model.Pitch) { p.Audience = "" }},
		{"empty tone", func(p *model.Pitch) { p.Tone = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			brief := validBrief()
			tc.mutate(brief)

			_, err := svc.Create(ctx, "user-1", brief)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
			}
		})
	}
}

// 未定義の語調でINVALID_TONEになることを検証
func TestService_Create_InvalidTone_ReturnsInvalidTone(t *testing.T) {
	svc := NewService(newMemPitchRepo(), nil)

	brief := validBrief()
	brief.Tone = "Sarcastic"

	_, err := svc.Create(context.Background(), "user-1", brief)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidTone {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidTone)
	}
}

// A, B, Cの順に作成すると[C, B, A]の順で一覧されることを検証
func TestService_List_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	svc := NewService(repo, nil)

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		brief := validBrief()
		brief.Title = title
		id, err := svc.Create(ctx, "user-1", brief)
		if err != nil {
			t.Fatalf("Create(%s) returned error: %v", title, err)
		}
		ids = append(ids, id)
	}

	pitches, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	want := []string{"C", "B", "A"}
	if len(pitches) != len(want) {
		t.Fatalf("len(pitches) = %d, want %d", len(pitches), len(want))
	}
	for i, title := range want {
		if pitches[i].Title != title {
			t.Errorf("pitches[%d].Title = %q, want %q", i, pitches[i].Title, title)
		}
	}
	_ = ids
}

// 更新したピッチが一覧の先頭に来ることを検証
func TestService_Update_MovesToFront(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	svc := NewService(repo, nil)

	idA, _ := svc.Create(ctx, "user-1", validBrief())
	if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	content := "updated content"
	if err := svc.Update(ctx, "user-1", idA, model.PitchUpdate{Content: &content}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	pitches, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if pitches[0].ID != idA {
		t.Errorf("updated pitch should be first, got %q", pitches[0].ID)
	}
	if pitches[0].Content != "updated content" {
		t.Errorf("Content = %q, want %q", pitches[0].Content, "updated content")
	}
	// 部分更新: 他のフィールドは維持される
	if pitches[0].Title != "Zen" {
		t.Errorf("Title = %q, want unchanged %q", pitches[0].Title, "Zen")
	}
}

// 他ユーザーのピッチ更新がPITCH_NOT_FOUNDになることを検証
func TestService_Update_OtherOwner_ReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	svc := NewService(repo, nil)

	id, _ := svc.Create(ctx, "user-1", validBrief())

	content := "hijack"
	err := svc.Update(ctx, "user-2", id, model.PitchUpdate{Content: &content})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePitchNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodePitchNotFound)
	}
}

// 削除が冪等であることを検証: 2回目の削除もエラーにならない
func TestService_Delete_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	svc := NewService(repo, nil)

	id, _ := svc.Create(ctx, "user-1", validBrief())

	if err := svc.Delete(ctx, "user-1", id); err != nil {
		t.Fatalf("first Delete returned error: %v", err)
	}
	if err := svc.Delete(ctx, "user-1", id); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}

	pitches, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(pitches) != 0 {
		t.Errorf("len(pitches) = %d, want 0", len(pitches))
	}
}

// ストレージ障害がSTORAGE_FAILEDとして表面化することを検証
func TestService_Create_StorageFailure_ReturnsStorageFailed(t *testing.T) {
	repo := newMemPitchRepo()
	repo.failNext = errors.New("connection reset")
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), "user-1", validBrief())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeStorageFailed {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeStorageFailed)
	}
}
