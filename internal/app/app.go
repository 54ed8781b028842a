// Package app はサブコマンドの解析と、各コンポーネントのワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/tradeledger/internal/account"
	"github.com/hitoshi/tradeledger/internal/auth"
	"github.com/hitoshi/tradeledger/internal/config"
	"github.com/hitoshi/tradeledger/internal/database"
	"github.com/hitoshi/tradeledger/internal/handler"
	"github.com/hitoshi/tradeledger/internal/logger"
	"github.com/hitoshi/tradeledger/internal/metrics"
	"github.com/hitoshi/tradeledger/internal/middleware"
	"github.com/hitoshi/tradeledger/internal/repository"
	"github.com/hitoshi/tradeledger/internal/security"
	"github.com/hitoshi/tradeledger/internal/transaction"
	"github.com/hitoshi/tradeledger/internal/user"
)

const (
	shutdownTimeout = 30 * time.Second
	dbPingTimeout   = 5 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck("http://localhost:" + port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("mode", string(cfg.Mode)),
		slog.String("version", cfg.AppVersion),
	)

	switch cmd {
	case CommandMigrate:
		action, ok := ParseMigrateAction(args)
		if !ok {
			return fmt.Errorf("unknown migrate action %q (want up, down or version)", args[1])
		}
		return runMigrate(cfg, action)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// Server はワイヤリング済みのHTTPサーバーと、その停止処理を保持する。
type Server struct {
	HTTP        *http.Server
	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドのリソースを解放する。HTTPサーバーの停止はShutdownで行う。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// NewServer はリポジトリ、サービス、ルーターを組み立ててHTTPサーバーを構築する。
// regにはメトリクスの登録先を渡す。
func NewServer(cfg *config.Config, db *sqlx.DB, reg *prometheus.Registry) *Server {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	accountRepo := repository.NewPostgresAccountRepo(db)
	txRepo := repository.NewPostgresTransactionRepo(db)
	ledgerRepo := repository.NewPostgresLedgerRepo(db)

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessExpire:  cfg.JWTAccessExpire,
		RefreshExpire: cfg.JWTRefreshExpire,
	})
	userService := user.NewService(userRepo, security.NewNameSanitizer())
	authService := auth.NewService(userRepo, userService, tokens)
	accountService := account.NewService(accountRepo)
	txService := transaction.NewService(ledgerRepo, txRepo, userRepo, cfg.TransactionSignatureSecret, collector)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:      authService,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimiter:        rateLimiter,
		Logger:             slog.Default(),
		Metrics:            collector,
		Gatherer:           reg,
		AuthService:        authService,
		UserService:        userService,
		AccountService:     accountService,
		TransactionService: txService,
		Health:             handler.NewHealthHandler(string(cfg.Mode), cfg.AppVersion, database.NewPinger(db)),
	})

	return &Server{
		HTTP: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		rateLimiter: rateLimiter,
	}
}

// newRegistry はプロセス・ランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := NewServer(cfg, db, newRegistry())
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveUntilDone(ctx, srv.HTTP)
}

// serveUntilDone はctxがキャンセルされるまでHTTPサーバーを動かし、その後グレースフルに停止する。
func serveUntilDone(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	case MigrateVersion:
		status, err := database.CurrentVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current schema version",
			slog.Bool("applied", status.Applied),
			slog.Uint64("version", uint64(status.Version)),
			slog.Bool("dirty", status.Dirty),
		)
		return nil
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は開発用の初期データを投入する。DEVモード以外では実行を拒否する。
func runSeed(cfg *config.Config) error {
	if cfg.Mode != config.ModeDev {
		return fmt.Errorf("seed is only allowed in %s mode (current: %s)", config.ModeDev, cfg.Mode)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := database.Seed(context.Background(), db, database.DefaultSeedUsers())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed", slog.Int("users_created", created))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// health_checkエンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + handler.APIPrefix + "/health_check")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
