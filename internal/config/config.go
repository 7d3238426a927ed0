// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	Port int

	// Cognito
	CognitoRegion       string
	CognitoUserPoolID   string
	CognitoClientID     string
	CognitoClientSecret string // optional
	CognitoDomain       string
	RedirectURIs        []string // 先頭がデフォルト

	// CORS
	AllowedOrigins []string // "*" はワイルドカード

	// Database
	DatabaseURL         string
	DatabasePoolSize    int
	DatabaseMaxOverflow int

	// Outbound HTTP
	HTTPTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Cleanup
	TaskRetentionDays int
}

// DefaultDatabasePath はDATABASE_URL未設定時に使用するSQLiteファイルパス。
const DefaultDatabasePath = "data/app.db"

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、欠けている変数をすべて列挙したエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.CognitoRegion = os.Getenv("COGNITO_REGION")
	if cfg.CognitoRegion == "" {
		missing = append(missing, "COGNITO_REGION")
	}

	cfg.CognitoUserPoolID = os.Getenv("COGNITO_USER_POOL_ID")
	if cfg.CognitoUserPoolID == "" {
		missing = append(missing, "COGNITO_USER_POOL_ID")
	}

	cfg.CognitoClientID = os.Getenv("COGNITO_CLIENT_ID")
	if cfg.CognitoClientID == "" {
		missing = append(missing, "COGNITO_CLIENT_ID")
	}

	cfg.CognitoDomain = os.Getenv("COGNITO_DOMAIN")
	if cfg.CognitoDomain == "" {
		missing = append(missing, "COGNITO_DOMAIN")
	}

	if os.Getenv("COGNITO_REDIRECT_URIS") == "" {
		missing = append(missing, "COGNITO_REDIRECT_URIS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.RedirectURIs = splitAndTrim(os.Getenv("COGNITO_REDIRECT_URIS"))
	if len(cfg.RedirectURIs) == 0 {
		return nil, fmt.Errorf("COGNITO_REDIRECT_URIS must contain at least one redirect URI")
	}

	port, err := parsePort(os.Getenv("PORT"))
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	cfg.CognitoClientSecret = os.Getenv("COGNITO_CLIENT_SECRET")

	cfg.AllowedOrigins = splitAndTrim(os.Getenv("ALLOWED_ORIGIN"))
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	// Optional fields with defaults
	cfg.DatabaseURL = getEnvString("DATABASE_URL", DefaultDatabasePath)
	cfg.DatabasePoolSize = getEnvInt("DATABASE_POOL_SIZE", 5)
	cfg.DatabaseMaxOverflow = getEnvInt("DATABASE_MAX_OVERFLOW", 2)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.TaskRetentionDays = getEnvInt("TASK_RETENTION_DAYS", 30)

	return cfg, nil
}

// Issuer は期待されるCognito発行者URLを返す。
func (c *Config) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.CognitoRegion, c.CognitoUserPoolID)
}

// JWKSURI はCognitoのJWKSエンドポイントを返す。
func (c *Config) JWKSURI() string {
	return c.Issuer() + "/.well-known/jwks.json"
}

// BaseDomain は末尾のスラッシュを除去したCognitoドメインを返す。
func (c *Config) BaseDomain() string {
	return strings.TrimRight(c.CognitoDomain, "/")
}

// TokenEndpoint はCognitoのトークンエンドポイントを返す。
func (c *Config) TokenEndpoint() string {
	return c.BaseDomain() + "/oauth2/token"
}

// UserInfoEndpoint はCognitoのuserInfoエンドポイントを返す。
func (c *Config) UserInfoEndpoint() string {
	return c.BaseDomain() + "/oauth2/userInfo"
}

// DefaultRedirectURI はデフォルトのリダイレクトURI（設定リストの先頭）を返す。
func (c *Config) DefaultRedirectURI() string {
	return c.RedirectURIs[0]
}

// AllowsRedirectURI は指定されたリダイレクトURIが許可リストに含まれるかを返す。
func (c *Config) AllowsRedirectURI(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// AllowsAllOrigins はCORS許可リストがワイルドカードを含むかを返す。
func (c *Config) AllowsAllOrigins() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// parsePort はPORT環境変数を整数として解析する。未設定の場合は4000を返す。
func parsePort(raw string) (int, error) {
	if raw == "" {
		return 4000, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("PORT must be an integer value: %q", raw)
	}
	return port, nil
}

// splitAndTrim はカンマ区切りの値を分割し、空要素を除いて返す。
func splitAndTrim(raw string) []string {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
