package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatthewIsblind/todoList/internal/metrics"
	"github.com/MatthewIsblind/todoList/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	HTTPRecorder   middleware.HTTPRecorder

	// サービス・リポジトリ
	AuthService AuthServiceInterface
	Tasks       TaskRepositoryInterface

	// メトリクス公開用。nilの場合/metricsルートを登録しない。
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → CORS → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.Tasks)

	// --- レート制限の対象外 ---

	r.Get("/health", Health)

	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Post("/verify", authHandler.Verify)
			r.Post("/exchange", authHandler.Exchange)
		})

		// タスク管理
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/addTask", taskHandler.AddTask)
			r.Get("/getActiveTasksByEmail", taskHandler.GetActiveTasksByEmail)
			r.Delete("/deleteTask/{id}", taskHandler.DeleteTask)
		})
	})

	return r
}
