package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    3,
		GenerationRate:  rate.Limit(1000),
		GenerationBurst: 2,
		CleanupInterval: time.Hour,
	}
}

func doRateLimitedRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/pitches", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// TestRateLimiter_GeneralAllowsWithinBurst はバースト内のリクエストが通ることを確認する。
func TestRateLimiter_GeneralAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if w := doRateLimitedRequest(handler, "user-1"); w.Code != http.StatusOK {
			t.Errorf("リクエスト%d: ステータスコード = %d, want 200", i+1, w.Code)
		}
	}
}

// TestRateLimiter_GenerationBlocksOverBurst はピッチ生成のバースト超過が
// 429とRetry-Afterヘッダーになることを確認する。
func TestRateLimiter_GenerationBlocksOverBurst(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.GenerationRate = rate.Limit(0.01) // 補充をほぼ止める
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GenerationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		if w := doRateLimitedRequest(handler, "user-1"); w.Code != http.StatusOK {
			t.Fatalf("バースト内のリクエスト%dが拒否された: %d", i+1, w.Code)
		}
	}

	w := doRateLimitedRequest(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("ステータスコード = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーが設定されていない")
	}
}

// TestRateLimiter_PerUserIsolation はあるユーザーの超過が別ユーザーに影響しないことを確認する。
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.GenerationRate = rate.Limit(0.01)
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GenerationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-1のバーストを使い切る
	for i := 0; i < 3; i++ {
		doRateLimitedRequest(handler, "user-1")
	}

	if w := doRateLimitedRequest(handler, "user-2"); w.Code != http.StatusOK {
		t.Errorf("別ユーザーのリクエストが拒否された: %d", w.Code)
	}
}

// TestRateLimiter_IndependentLimits は全般と生成のレート制限が独立に動作することを確認する。
func TestRateLimiter_IndependentLimits(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.GenerationRate = rate.Limit(0.01)
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	genHandler := rl.GenerationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 生成のバーストを使い切っても全般は通る
	for i := 0; i < 3; i++ {
		doRateLimitedRequest(genHandler, "user-1")
	}
	if w := doRateLimitedRequest(generalHandler, "user-1"); w.Code != http.StatusOK {
		t.Errorf("全般リクエストが生成の制限に巻き込まれた: %d", w.Code)
	}
}

func TestRateLimiter_RequiresUserID(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ユーザーIDのないリクエストがハンドラーに到達してはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pitches", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("ステータスコード = %d, want 401", w.Code)
	}
}

// TestRateLimiter_CleanupRemovesStaleEntries は最終アクセスが古いエントリが
// クリーンアップで削除されることを確認する。
func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	doRateLimitedRequest(handler, "user-1")

	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("リミッター数 = %d, want 1", rl.GeneralLimiterCount())
	}

	// TTL（CleanupInterval*2）経過後のクリーンアップを待つ
	deadline := time.Now().Add(time.Second)
	for rl.GeneralLimiterCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rl.GeneralLimiterCount() != 0 {
		t.Errorf("期限切れエントリが削除されていない: %d", rl.GeneralLimiterCount())
	}
}
