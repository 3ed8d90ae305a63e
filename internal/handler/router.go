package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/metrics"
	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// ヘルスチェック（nil可）
	HealthChecker HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ピッチ
	PitchService      PitchServiceInterface
	Subscriber        SnapshotSubscriber
	ControllerFactory ControllerFactory

	// エクスポート
	PDFRenderer  PDFRendererInterface
	HTMLRenderer HTMLRendererInterface

	// ユーザー
	UserService UserServiceInterface

	// メトリクス（nil可）
	Collector metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	pitchHandler := NewPitchHandler(deps.PitchService, deps.Subscriber, deps.ControllerFactory, deps.Collector)
	exportHandler := NewExportHandler(deps.PitchService, deps.PDFRenderer, deps.HTMLRenderer, deps.Collector)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/anonymous", authHandler.SignInAnonymously)
		r.Post("/token", authHandler.SignInWithToken)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// GET /auth/csrf-token - CSRFトークンの取得
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ピッチ管理
		r.Route("/api/pitches", func(r chi.Router) {
			r.Get("/", pitchHandler.ListPitches)
			r.Post("/", pitchHandler.CreatePitch)

			// GET /api/pitches/stream - ライブスナップショット（SSE）
			r.Get("/stream", pitchHandler.StreamPitches)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pitchHandler.GetPitch)
				r.Patch("/", pitchHandler.UpdatePitch)
				r.Delete("/", pitchHandler.DeletePitch)

				// POST /api/pitches/{id}/generate - ピッチ生成（生成専用レート制限を追加）
				r.With(deps.RateLimiter.GenerationMiddleware()).Post("/generate", pitchHandler.GeneratePitch)

				// エクスポート
				r.Get("/export", exportHandler.ExportPDF)
				r.Get("/preview", exportHandler.PreviewHTML)
			})
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックのハンドラーを返す。
// checkerがnilでなければ疎通確認を行い、失敗時は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
