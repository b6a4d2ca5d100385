package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type AppConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DbConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// JWTConfig carries the signing material for both token families. Access and
// refresh tokens are signed with distinct secrets so a leaked access secret
// cannot be used to forge refresh tokens.
type JWTConfig struct {
	Issuer        string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite string
}

type Config struct {
	AppConfig    *AppConfig
	DbConfig     *DbConfig
	JWTConfig    *JWTConfig
	CookieConfig *CookieConfig
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// not fatal: production deployments inject real env vars
		logger.Warn("failed to load .env file", zap.Error(err))
	}

	/** db config */
	dsn := os.Getenv("POSTGRES_DSN")

	maxOpenConns, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS"))
	if err != nil {
		return nil, err
	}
	maxIdleConns, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS"))
	if err != nil {
		return nil, err
	}
	maxConnLifetime, err := time.ParseDuration(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	dbConfig := &DbConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		MaxConnLifetime: maxConnLifetime,
	}

	/** app config */
	readTimeout, err := time.ParseDuration(os.Getenv("APP_READ_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	writeTimeout, err := time.ParseDuration(os.Getenv("APP_WRITE_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	idleTimeout, err := time.ParseDuration(os.Getenv("APP_IDLE_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Port:         os.Getenv("APP_PORT"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	/** jwt config */
	// TTLs use Go duration syntax, e.g. 15m for access and 168h for refresh.
	accessTTL, err := time.ParseDuration(os.Getenv("JWT_ACCESS_TTL"))
	if err != nil {
		return nil, err
	}
	refreshTTL, err := time.ParseDuration(os.Getenv("JWT_REFRESH_TTL"))
	if err != nil {
		return nil, err
	}
	jwtConfig := &JWTConfig{
		Issuer:        os.Getenv("JWT_ISSUER"),
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}

	/** cookie config */
	cookieConfig := &CookieConfig{
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		Path:     os.Getenv("COOKIE_PATH"),
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		SameSite: os.Getenv("COOKIE_SAMESITE"),
	}
	if cookieConfig.Path == "" {
		cookieConfig.Path = "/"
	}

	return &Config{
		DbConfig:     dbConfig,
		AppConfig:    appConfig,
		JWTConfig:    jwtConfig,
		CookieConfig: cookieConfig,
	}, nil
}
