package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tradeledger/internal/metrics"
	"github.com/hitoshi/tradeledger/internal/middleware"
)

// APIPrefix は全APIエンドポイントの共通プレフィックス。
const APIPrefix = "/api/v1"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator middleware.UserAuthenticator
	CORSOrigins   []string
	RateLimiter   *middleware.RateLimiter
	Logger        *slog.Logger
	Metrics       metrics.MetricsCollector
	// Gathererがnilの場合は/metricsを公開しない
	Gatherer prometheus.Gatherer

	AuthService        AuthServiceInterface
	UserService        UserServiceInterface
	AccountService     AccountServiceInterface
	TransactionService TransactionServiceInterface
	Health             *HealthHandler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → Metrics → SecurityHeaders → CORS
//
// 認証ルート（/auth/*）はIP単位、それ以外の認証済みルートはユーザー単位でレート制限する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigins))

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	accountHandler := NewAccountHandler(deps.AccountService)
	txHandler := NewTransactionHandler(deps.TransactionService)

	r.Route(APIPrefix, func(r chi.Router) {
		// --- 認証不要のルート ---
		if deps.Health != nil {
			r.Get("/health_check", deps.Health.Check)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Patch("/login", authHandler.Login)
			r.Patch("/refresh", authHandler.Refresh)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Patch("/me", userHandler.UpdateMe)
				r.Get("/{id}", userHandler.GetUser)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/", userHandler.ListUsers)
					r.Post("/", userHandler.CreateUser)
					r.Put("/{id}", userHandler.UpdateUser)
					r.Delete("/{id}", userHandler.DeleteUser)
				})
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", accountHandler.ListMine)
				r.Get("/id/{id}", accountHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", accountHandler.Create)
					r.Get("/{user_id}", accountHandler.ListByUser)
				})
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", txHandler.ListMine)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", txHandler.Create)
					r.Get("/{user_id}", txHandler.ListByUser)
				})
			})
		})
	})

	return r
}
