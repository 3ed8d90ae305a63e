package pitch

import (
	"context"
	"fmt"
	"sync"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/repository"
)

// Snapshot は1回の変更イベントで配信される、所有者のピッチ全件の整合スナップショット。
// 常にupdated_at降順の完全なリストであり、差分は配信しない。
type Snapshot []*model.Pitch

// Hub はピッチコレクションのライブ購読を管理する。
// 購読者は変更イベントごとに所有者の全件スナップショットを受け取る。
// ダッシュボードとバックグラウンドタブのように、
// 同一所有者に複数の購読者が同時に存在してよい。
type Hub struct {
	repo repository.PitchRepository

	mu        sync.Mutex
	subs      map[string]map[int]func(Snapshot) // ownerID -> subscriberID -> callback
	delivery  map[string]*sync.Mutex            // ownerID -> 配信直列化ロック
	nextSubID int
}

// NewHub はHubを生成する。
func NewHub(repo repository.PitchRepository) *Hub {
	return &Hub{
		repo:     repo,
		subs:     make(map[string]map[int]func(Snapshot)),
		delivery: make(map[string]*sync.Mutex),
	}
}

// deliveryLock は所有者ごとの配信ロックを返す。
// スナップショットの取得からコールバック呼び出しまでをこのロックで直列化することで、
// 新しいスナップショットが古いスナップショットに追い越されないことを保証する。
// ロックは所有者ごとに生成したまま保持する（解放すると進行中の配信と競合するため）。
func (h *Hub) deliveryLock(ownerID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delivery[ownerID] == nil {
		h.delivery[ownerID] = &sync.Mutex{}
	}
	return h.delivery[ownerID]
}

// Subscribe は所有者のピッチコレクションのライブ購読を登録する。
// コールバックは登録時に現在のスナップショットで1回、以降は変更のたびに呼ばれる。
// 返される解除関数を呼ばないままにすると購読が残り続ける。
func (h *Hub) Subscribe(ctx context.Context, ownerID string, callback func(Snapshot)) (func(), error) {
	// 初回スナップショットの取得・登録・配信を配信ロック内で行う。
	// 並行するPublishの新しいスナップショットが初回スナップショットに
	// 追い越される（購読者が古い状態で止まる）ことを防ぐ。
	dl := h.deliveryLock(ownerID)
	dl.Lock()
	defer dl.Unlock()

	snapshot, err := h.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("初回スナップショットの取得に失敗しました: %w", err)
	}

	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[int]func(Snapshot))
	}
	h.subs[ownerID][id] = callback
	h.mu.Unlock()

	callback(snapshot)

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[ownerID], id)
		if len(h.subs[ownerID]) == 0 {
			delete(h.subs, ownerID)
		}
	}
	return unsubscribe, nil
}

// Publish は所有者の最新スナップショットを全購読者に配信する。
// 全購読者が同一の整合スナップショットを受け取る（購読者ごとの再クエリはしない）。
// 配信は所有者ごとに直列化され、スナップショットは取得順に配信される。
func (h *Hub) Publish(ctx context.Context, ownerID string) error {
	dl := h.deliveryLock(ownerID)
	dl.Lock()
	defer dl.Unlock()

	h.mu.Lock()
	if len(h.subs[ownerID]) == 0 {
		h.mu.Unlock()
		return nil
	}
	callbacks := make([]func(Snapshot), 0, len(h.subs[ownerID]))
	for _, cb := range h.subs[ownerID] {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	snapshot, err := h.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("スナップショットの取得に失敗しました: %w", err)
	}

	for _, cb := range callbacks {
		cb(snapshot)
	}
	return nil
}

// SubscriberCount は所有者の現在の購読者数を返す。テストおよびメトリクス用。
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}
