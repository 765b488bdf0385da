package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/jiji/internal/ask"
	"github.com/hitoshi/jiji/internal/auth"
	"github.com/hitoshi/jiji/internal/config"
	"github.com/hitoshi/jiji/internal/database"
	"github.com/hitoshi/jiji/internal/handler"
	"github.com/hitoshi/jiji/internal/logger"
	"github.com/hitoshi/jiji/internal/metrics"
	"github.com/hitoshi/jiji/internal/middleware"
	"github.com/hitoshi/jiji/internal/repository"
	"github.com/hitoshi/jiji/internal/security"
	"github.com/hitoshi/jiji/internal/supabase"
	"github.com/hitoshi/jiji/internal/telemetry"
)

// serviceName はトレースのリソース属性に使うサービス名。
const serviceName = "jiji"

// Init はアプリケーションの初期化を行う。
// .envファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envがあれば読み込む（既に設定済みの環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. 設定されたログレベルで再設定
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
		port, err := healthcheckPort()
		if err != nil {
			return err
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	storage := "rest"
	if cfg.UsesPostgres() {
		storage = "postgres"
	}
	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.Port),
		slog.String("storage", storage),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINTまたはSIGTERMを受信する）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. トレースの初期化（エンドポイント未設定時は何もしない）
	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// 2. 依存関係のワイヤリング
	h, cleanup, err := buildHandler(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. HTTPサーバーの起動
	server := newHTTPServer(cfg, h)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// minWriteTimeout はWriteTimeoutの下限。
const minWriteTimeout = 15 * time.Second

// newHTTPServer はタイムアウトを設定したhttp.Serverを生成する。
// /ask-jijiは1リクエストでプロバイダーを最大3回呼ぶ（トークン検証・リソース検索・質問の保存）ため、
// WriteTimeoutはProviderTimeoutの3倍に余裕を加えた値とする。
func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	writeTimeout := 3*cfg.ProviderTimeout + 5*time.Second
	if writeTimeout < minWriteTimeout {
		writeTimeout = minWriteTimeout
	}
	return &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// buildHandler はSupabaseクライアント、リポジトリ、サービス、ルーターを組み立てる。
// 返されるcleanupはレートリミッターとDB接続を解放する。
func buildHandler(ctx context.Context, cfg *config.Config, l *slog.Logger) (http.Handler, func(), error) {
	// 1. Supabaseクライアント（公開キーと特権キー）
	httpClient := telemetry.NewHTTPClient(cfg.ProviderTimeout)
	public := supabase.NewClient(supabase.Config{
		URL:        cfg.SupabaseURL,
		APIKey:     cfg.SupabaseAnonKey,
		HTTPClient: httpClient,
	})
	privileged := supabase.NewClient(supabase.Config{
		URL:        cfg.SupabaseURL,
		APIKey:     cfg.SupabaseServiceKey,
		HTTPClient: httpClient,
	})

	// 2. リポジトリの初期化
	repos, closeRepos, err := openRepositories(ctx, cfg, public, privileged, l)
	if err != nil {
		return nil, nil, err
	}

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(public, privileged, repos.profiles, mc, l)
	askService := ask.NewService(repos.resources, repos.queries, mc, l)

	// 5. ルーターの構築
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		AskPerMinute:  cfg.RateLimitAsk,
		AuthPerMinute: cfg.RateLimitAuth,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             l,
		TokenVerifier:      authService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rl,
		Metrics:            mc,
		MetricsGatherer:    reg,
		AuthService:        authService,
		AskService:         askService,
		Sanitizer:          security.NewContentSanitizer(),
	})

	cleanup := func() {
		rl.Stop()
		closeRepos()
	}
	return telemetry.NewHandler(router, serviceName), cleanup, nil
}

// repositories はサービスが利用するリポジトリの組。
type repositories struct {
	resources repository.ResourceRepository
	queries   repository.QueryRepository
	profiles  repository.ProfileRepository
}

// openRepositories はDATABASE_URLの有無に応じてリポジトリを構成する。
// 未設定の場合はPostgREST経由とし、プロフィールのみ特権キーで書き込む。
func openRepositories(
	ctx context.Context,
	cfg *config.Config,
	public, privileged *supabase.Client,
	l *slog.Logger,
) (repositories, func(), error) {
	if !cfg.UsesPostgres() {
		return repositories{
			resources: repository.NewRESTResourceRepo(public),
			queries:   repository.NewRESTQueryRepo(public),
			profiles:  repository.NewRESTProfileRepo(privileged),
		}, func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return repositories{}, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return repositories{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	l.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	repos := repositories{
		resources: repository.NewPostgresResourceRepo(db),
		queries:   repository.NewPostgresQueryRepo(db),
		profiles:  repository.NewPostgresProfileRepo(db),
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			l.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
	return repos, closeDB, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL, slog.Default()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// healthcheckPort はサーバーと同じ規則で待ち受けポートを決める。
// .envがあれば読み込んだうえでPORTを参照し、未設定なら3000とする。
func healthcheckPort() (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to load .env: %w", err)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return port, nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
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
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
