package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL, required"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY, required"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY, required"`

	// Server
	Port string `env:"PORT, default=3000"`

	// Database（設定時のみPostgresへ直接接続する）
	DatabaseURL string `env:"DATABASE_URL"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	// Provider
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT, default=10s"`

	// Rate Limit
	RateLimitAsk  int `env:"RATE_LIMIT_ASK, default=30"`
	RateLimitAuth int `env:"RATE_LIMIT_AUTH, default=10"`

	// Logging
	LogLevel slog.Level `env:"LOG_LEVEL, default=info"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith は指定したLookuperからConfigを読み込む。
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.SupabaseURL) == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if strings.TrimSpace(c.SupabaseAnonKey) == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if strings.TrimSpace(c.SupabaseServiceKey) == "" {
		missing = append(missing, "SUPABASE_SERVICE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are empty: %v", missing)
	}

	u, err := url.Parse(c.SupabaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SUPABASE_URL is not a valid http(s) URL: %q", c.SupabaseURL)
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive: %s", c.ProviderTimeout)
	}
	return nil
}

// UsesPostgres はリポジトリをPostgres直結で構成するかどうかを返す。
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// ListenAddr はHTTPサーバの待ち受けアドレスを返す。
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
