// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatthewIsblind/todoList/internal/auth"
	"github.com/MatthewIsblind/todoList/internal/config"
	"github.com/MatthewIsblind/todoList/internal/database"
	"github.com/MatthewIsblind/todoList/internal/handler"
	"github.com/MatthewIsblind/todoList/internal/logger"
	"github.com/MatthewIsblind/todoList/internal/metrics"
	"github.com/MatthewIsblind/todoList/internal/middleware"
	"github.com/MatthewIsblind/todoList/internal/repository"
	"github.com/MatthewIsblind/todoList/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "4000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.Int("port", cfg.Port),
		slog.String("issuer", cfg.Issuer()),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, database.Dialect, error) {
	db, dialect, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		PoolSize:    cfg.DatabasePoolSize,
		MaxOverflow: cfg.DatabaseMaxOverflow,
	})
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, dialect, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続とマイグレーション、全依存関係のワイヤリングを行い、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続とマイグレーション
	db, dialect, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established", slog.String("dialect", string(dialect)))

	if err := database.RunMigrations(db, dialect); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// 2. リポジトリの初期化
	store := repository.NewStore(db, dialect)
	userRepo := repository.NewUserRepo(store)
	taskRepo := repository.NewTaskRepo(store)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証サービスの初期化
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	keyCache := auth.NewKeyCache(auth.WithHTTPClient(httpClient))
	verifier := auth.NewVerifier(cfg.JWKSURI(), cfg.Issuer(), cfg.CognitoClientID, keyCache)
	exchanger := auth.NewExchanger(auth.ExchangerConfig{
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		RedirectURIs: cfg.RedirectURIs,
		TokenURL:     cfg.TokenEndpoint(),
		UserInfoURL:  cfg.UserInfoEndpoint(),
		Timeout:      cfg.HTTPTimeout,
	})
	authService := auth.NewService(verifier, exchanger, userRepo, collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    rateLimiter,
		HTTPRecorder:   collector,
		AuthService:    authService,
		Tasks:          taskRepo,
		Gatherer:       registry,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はクリーンアップワーカーモードで起動する。
// 起動直後と以降24時間ごとに、保持期間を超過した非アクティブタスクを物理削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, dialect, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)", slog.String("dialect", string(dialect)))

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	job := cleanup.NewCleanupJob(db, slog.Default(), collector)
	job.RetentionDays = cfg.TaskRetentionDays

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("retention_days", job.RetentionDays),
	)

	// 起動直後に1回実行し、以降は日次で実行する
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	db, dialect, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db, dialect); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
