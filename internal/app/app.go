package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newspulse/internal/auth"
	"github.com/hitoshi/newspulse/internal/bias"
	"github.com/hitoshi/newspulse/internal/config"
	"github.com/hitoshi/newspulse/internal/database"
	"github.com/hitoshi/newspulse/internal/friend"
	"github.com/hitoshi/newspulse/internal/handler"
	"github.com/hitoshi/newspulse/internal/logger"
	"github.com/hitoshi/newspulse/internal/metrics"
	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/mission"
	"github.com/hitoshi/newspulse/internal/reaction"
	"github.com/hitoshi/newspulse/internal/repository"
	"github.com/hitoshi/newspulse/internal/security"
	"github.com/hitoshi/newspulse/internal/streak"
	"github.com/hitoshi/newspulse/internal/user"
	"github.com/hitoshi/newspulse/internal/worker/biasrefresh"
	"github.com/hitoshi/newspulse/internal/worker/cleanup"
	"github.com/hitoshi/newspulse/internal/worker/ingest"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
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
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// バックグラウンド処理のライフサイクル管理
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	friendRepo := repository.NewPostgresFriendRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)

	// 状態変更通知リスナー（LISTEN/NOTIFY経由でSSEストリームを駆動する）
	stateListener := repository.NewStateListener(cfg.DatabaseURL, slog.Default(), collector)
	go func() {
		if err := stateListener.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("state listener stopped", slog.String("error", err.Error()))
		}
	}()

	stateRepo := repository.NewPostgresStateRepo(db, stateListener, collector)

	// 4. エンゲージメントトラッカーの初期化
	streakTracker := streak.NewTracker(stateRepo, slog.Default())
	missionTracker := mission.NewTracker(stateRepo, slog.Default())
	reactionTracker := reaction.NewTracker(stateRepo, slog.Default())

	// 5. 信頼度評価キャッシュの初期化
	biasClient := bias.NewClient(
		&http.Client{Timeout: cfg.BiasFetchTimeout},
		slog.Default(),
		cfg.BiasAPIURL,
	)
	biasCache := bias.NewCache(biasClient, slog.Default(), collector)

	// カタログの定期再取得をバックグラウンドで実行（起動直後に1回取得）
	refreshJob := biasrefresh.NewJob(biasCache, slog.Default(), cfg.BiasRefreshInterval)
	go refreshJob.Start(ctx)

	// 6. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		slog.Default(),
	)
	userService := user.NewService(userRepo, friendRepo, slog.Default())
	friendService := friend.NewService(friendRepo, userRepo, slog.Default())

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFromLimits(cfg.RateLimitGeneral, cfg.RateLimitFriend),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		UserService:    userService,
		ProfileService: userService,

		StreakTracker:   streakTracker,
		MissionTracker:  missionTracker,
		MissionRecorder: missionTracker,
		ReactionTracker: reactionTracker,

		FriendService: friendService,

		ArticleReader: articleRepo,
		BiasCache:     biasCache,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// SSEストリームを切断しないようWriteTimeoutは設定しない
		WriteTimeout: 0,
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

	// バックグラウンド処理を先に停止してからHTTPを閉じる
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、記事インジェストスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスとリポジトリの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sessionRepo := repository.NewPostgresSessionRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. インジェストの初期化
	fetcher := ingest.NewFetcher(
		articleRepo, ssrfGuard, sanitizer, collector,
		slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize,
	)
	scheduler := ingest.NewScheduler(
		cfg.IngestFeeds, fetcher, slog.Default(), cfg.FetchMaxConcurrent,
	)

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, articleRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
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
		slog.Duration("ingest_interval", cfg.IngestInterval),
		slog.Int("feed_count", len(cfg.IngestFeeds)),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// インジェストスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.IngestInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
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
