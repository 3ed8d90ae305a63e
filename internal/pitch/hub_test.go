package pitch

import (
	"context"
	"sync"
	"testing"
)

// Subscribeが登録直後に現在のスナップショットで1回呼ばれることを検証
func TestHub_Subscribe_ImmediateSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	var snapshots []Snapshot
	unsubscribe, err := hub.Subscribe(ctx, "user-1", func(s Snapshot) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer unsubscribe()

	if len(snapshots) != 1 {
		t.Fatalf("expected 1 immediate snapshot, got %d", len(snapshots))
	}
	if len(snapshots[0]) != 1 {
		t.Errorf("snapshot length = %d, want 1", len(snapshots[0]))
	}
}

// 変更のたびに全件スナップショットが配信されることを検証
func TestHub_Publish_DeliversFullSnapshotPerChange(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	var snapshots []Snapshot
	unsubscribe, err := hub.Subscribe(ctx, "user-1", func(s Snapshot) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer unsubscribe()

	idA, _ := svc.Create(ctx, "user-1", validBrief())
	if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := svc.Delete(ctx, "user-1", idA); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	// 初回 + create + create + delete = 4回
	if len(snapshots) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if len(last) != 1 {
		t.Fatalf("final snapshot length = %d, want 1", len(last))
	}
	// 削除されたピッチはスナップショットに現れない
	if last[0].ID == idA {
		t.Error("deleted pitch should be absent from subsequent snapshots")
	}
}

// 同一所有者の複数購読者が同じ変更を観測することを検証
func TestHub_MultipleSubscribers_SameOwner(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	var countA, countB int
	unsubA, err := hub.Subscribe(ctx, "user-1", func(Snapshot) { countA++ })
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer unsubA()
	unsubB, err := hub.Subscribe(ctx, "user-1", func(Snapshot) { countB++ })
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer unsubB()

	if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if countA != 2 || countB != 2 {
		t.Errorf("counts = (%d, %d), want (2, 2)", countA, countB)
	}
}

// 購読解除後は配信されず、購読者数も減ることを検証
func TestHub_Unsubscribe_ReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	count := 0
	unsubscribe, err := hub.Subscribe(ctx, "user-1", func(Snapshot) { count++ })
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if hub.SubscriberCount("user-1") != 1 {
		t.Errorf("SubscriberCount = %d, want 1", hub.SubscriberCount("user-1"))
	}

	unsubscribe()

	if hub.SubscriberCount("user-1") != 0 {
		t.Errorf("SubscriberCount after unsubscribe = %d, want 0", hub.SubscriberCount("user-1"))
	}

	if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if count != 1 {
		t.Errorf("expected only the immediate snapshot, got %d calls", count)
	}
}

// 並行する変更と購読の間で、配信されるスナップショットが古い状態に
// 巻き戻らないことを検証。初回スナップショットを含め、取得から配信までが
// 所有者ごとに直列化されるため、スナップショットの件数は単調非減少になる。
func TestHub_ConcurrentPublish_DeliveryOrderMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	var mu sync.Mutex
	var sizes []int

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		unsubscribe, err := hub.Subscribe(ctx, "user-1", func(s Snapshot) {
			mu.Lock()
			sizes = append(sizes, len(s))
			mu.Unlock()
		})
		if err != nil {
			t.Errorf("Subscribe returned error: %v", err)
			return
		}
		t.Cleanup(unsubscribe)
	}()

	const writers = 8
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, "user-1", validBrief()); err != nil {
				t.Errorf("Create returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(sizes) == 0 {
		t.Fatal("no snapshot was delivered")
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] < sizes[i-1] {
			t.Fatalf("snapshot sizes regressed: %v", sizes)
		}
	}
}

// 他所有者の変更が配信されないことを検証
func TestHub_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	repo := newMemPitchRepo()
	hub := NewHub(repo)
	svc := NewService(repo, hub)

	var snapshots []Snapshot
	unsubscribe, err := hub.Subscribe(ctx, "user-1", func(s Snapshot) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer unsubscribe()

	if _, err := svc.Create(ctx, "user-2", validBrief()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if len(snapshots) != 1 {
		t.Fatalf("expected only the immediate snapshot, got %d", len(snapshots))
	}

	// user-1のスナップショットにuser-2のピッチが混入しない
	for _, p := range snapshots[0] {
		if p.OwnerID != "user-1" {
			t.Errorf("snapshot contains pitch owned by %q", p.OwnerID)
		}
	}
}
