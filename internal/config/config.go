// Package config はSquadBoardの実行時設定を環境変数から読み込む。
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/squadboard/pkg/database"
)

// minProductionSecretLength は本番環境で要求するJWTシークレットの最小バイト数。
const minProductionSecretLength = 16

// Config はアプリケーションの実行時設定を保持する。
// 起動時に一度だけ生成し、以降は読み取り専用として各コンポーネントに渡す。
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"5000"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:/data/squadboard.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"`

	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:5500"`

	UploadDir      string `envconfig:"UPLOAD_DIR" default:"/data/uploads"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`

	AuthRateLimit  int           `envconfig:"AUTH_RATE_LIMIT" default:"20"`
	AuthRateWindow time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"1m"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
}

// Load は環境変数から設定を読み込み、検証する。
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRETを設定してください")
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLength {
		return fmt.Errorf("本番環境のJWT_SECRETは%dバイト以上にしてください", minProductionSecretLength)
	}
	if _, err := database.ParseDriver(c.DBDriver); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URLを設定してください")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTLは正の値にしてください: %s", c.TokenTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COSTは%d以上%d以下にしてください: %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTESは正の値にしてください: %d", c.UploadMaxBytes)
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		return errors.New("AUTH_RATE_LIMITとAUTH_RATE_WINDOWは正の値にしてください")
	}
	return nil
}

// Driver は設定されたデータベースドライバを返す。
// Validate済みの設定に対して呼び出すこと。
func (c *Config) Driver() database.Driver {
	d, _ := database.ParseDriver(c.DBDriver)
	return d
}

// IsProduction は本番環境で動作している場合にtrueを返す。
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// IsDevelopment は開発環境で動作している場合にtrueを返す。
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
