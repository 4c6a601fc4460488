package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	Ads      AdsConfig
	Rewards  RewardsConfig
	Ledger   LedgerConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Disabled bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type TelegramConfig struct {
	BotToken string
}

type AdsConfig struct {
	PlayerURL       string
	WebhookSecret   string
	AcceptedResults []string
	RewardMin       float64
	RewardMax       float64
	Cooldown        time.Duration
}

type RewardsConfig struct {
	CommissionRate       decimal.Decimal
	DailyBonus           decimal.Decimal
	SignupBonus          decimal.Decimal
	MinWithdrawBalance   decimal.Decimal
	MinWithdrawReferrals int
}

type LedgerConfig struct {
	MaxRetries   int
	StoreTimeout time.Duration
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	dbDisabled, _ := strconv.ParseBool(getEnv("DB_DISABLE", "false"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "cashyads"),
			Password: getEnv("DB_PASSWORD", "cashyads"),
			Name:     getEnv("DB_NAME", "cashyads"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Disabled: dbDisabled,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Ads: AdsConfig{
			PlayerURL:       getEnv("AD_PLAYER_URL", ""),
			WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
			AcceptedResults: splitList(getEnv("ACCEPTED_RESULTS", "completed,success,rewarded")),
			RewardMin:       getEnvFloat("AD_REWARD_MIN", 3),
			RewardMax:       getEnvFloat("AD_REWARD_MAX", 5),
			Cooldown:        getEnvDuration("AD_COOLDOWN", 0),
		},
		Rewards: RewardsConfig{
			CommissionRate:       getEnvDecimal("COMMISSION_RATE", "0.05"),
			DailyBonus:           getEnvDecimal("DAILY_BONUS", "0.50"),
			SignupBonus:          getEnvDecimal("SIGNUP_BONUS", "50"),
			MinWithdrawBalance:   getEnvDecimal("MIN_WITHDRAW_BALANCE", "380"),
			MinWithdrawReferrals: getEnvInt("MIN_WITHDRAW_REFERRALS", 15),
		},
		Ledger: LedgerConfig{
			MaxRetries:   getEnvInt("LEDGER_MAX_RETRIES", 5),
			StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
