// Package config loads engine configuration from the environment.
// Grounded on teacher's internal/config/config.go: the same
// struct-of-structs Config plus getEnv/getEnvAsInt/getEnvAsBool/
// getEnvAsDuration helper pattern and an end-of-Load validation block,
// re-pointed at the trade execution engine's own settings (queue
// admission control, session-store encryption, scheduler, HTTP
// diagnostics) instead of exchange/arbitrage settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"optionx/pkg/crypto"
)

// Config содержит всю конфигурацию движка исполнения сделок.
type Config struct {
	Server    ServerConfig
	Queue     QueueConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Platform  PlatformConfig
}

// ServerConfig - настройки диагностического HTTP сервера
// (health/metrics/pprof, см. internal/api).
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// QueueConfig - параметры admission control очереди сделок, см. spec §6
// Configuration options.
type QueueConfig struct {
	OrderIntervalMS      int64 // минимальный интервал между допусками сделок
	OrderQueueTimeoutSec int64 // время ожидания в очереди до отмены
	ResponseTimeoutSec   int64 // время ожидания ответа платформы при закрытии
	MaxTrades            int64 // лимит одновременно открытых сделок, 0 = без лимита
}

// SecurityConfig - параметры шифрования сессионного хранилища.
type SecurityConfig struct {
	AESMode         crypto.AESMode
	EncryptionKey   string
	SessionDBPath   string
	LookupKeySecret string
}

// SchedulerConfig - интервалы периодических задач движка, не влияющих на
// путь исполнения сделки напрямую (обновление баланса/символов, тик
// очереди).
type SchedulerConfig struct {
	QueueTickInterval    time.Duration
	BalanceRefreshPeriod time.Duration
	SymbolRefreshPeriod  time.Duration
}

// LoggingConfig - настройки логирования.
type LoggingConfig struct {
	Level  string
	Format string
}

// PlatformConfig - настройки привязки к торговой платформе: опциональный
// websocket-источник котировок для demo-адаптера (при пустом URL адаптер
// остаётся чисто детерминированным, управляемым через PushTick) и лимит
// запросов на открытие сделки.
type PlatformConfig struct {
	TickFeedURL     string
	PlaceTradeRate  float64 // запросов/сек, 0 и меньше = 10 (значение по умолчанию ratelimit)
	PlaceTradeBurst float64
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Queue: QueueConfig{
			OrderIntervalMS:      int64(getEnvAsInt("ORDER_INTERVAL_MS", 1000)),
			OrderQueueTimeoutSec: int64(getEnvAsInt("ORDER_QUEUE_TIMEOUT_SEC", 30)),
			ResponseTimeoutSec:   int64(getEnvAsInt("RESPONSE_TIMEOUT_SEC", 15)),
			MaxTrades:            int64(getEnvAsInt("MAX_TRADES", 0)), // 0 = без лимита
		},
		Security: SecurityConfig{
			EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
			SessionDBPath:   getEnv("SESSION_DB_PATH", "./data/sessions.json"),
			LookupKeySecret: getEnv("LOOKUP_KEY_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			QueueTickInterval:    getEnvAsDuration("QUEUE_TICK_INTERVAL", 250*time.Millisecond),
			BalanceRefreshPeriod: getEnvAsDuration("BALANCE_REFRESH_PERIOD", 1*time.Minute),
			SymbolRefreshPeriod:  getEnvAsDuration("SYMBOL_REFRESH_PERIOD", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Platform: PlatformConfig{
			TickFeedURL:     getEnv("TICK_FEED_URL", ""),
			PlaceTradeRate:  getEnvAsFloat("PLACE_TRADE_RATE", 5),
			PlaceTradeBurst: getEnvAsFloat("PLACE_TRADE_BURST", 10),
		},
	}

	// Валидация критичных параметров - без ключа нечем шифровать хранилище
	// сессий, двигаться дальше бессмысленно.
	mode, err := parseAESMode(getEnv("AES_MODE", "cbc_256"))
	if err != nil {
		return nil, err
	}
	cfg.Security.AESMode = mode

	if cfg.Security.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required to encrypt the session store")
	}
	if len(cfg.Security.EncryptionKey) != mode.KeySize() {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be %d bytes for AES_MODE %s", mode.KeySize(), cfg.Security.AESMode)
	}
	if cfg.Security.LookupKeySecret == "" {
		return nil, fmt.Errorf("LOOKUP_KEY_SECRET is required to derive session lookup keys")
	}

	return cfg, nil
}

// parseAESMode accepts the six aes_mode values named by the spec's
// configuration contract - CBC_128/CBC_192/CBC_256/CFB_128/CFB_192/
// CFB_256, case-insensitive, with or without the underscore
// ("cbc256" also matches). An unrecognized mode is a hard config error
// rather than a silent fallback, since the key length check downstream
// depends on having resolved a real mode.
func parseAESMode(raw string) (crypto.AESMode, error) {
	normalized := strings.ToLower(strings.ReplaceAll(raw, "_", ""))
	switch normalized {
	case "cbc128":
		return crypto.ModeCBC128, nil
	case "cbc192":
		return crypto.ModeCBC192, nil
	case "cbc256":
		return crypto.ModeCBC256, nil
	case "cfb128":
		return crypto.ModeCFB128, nil
	case "cfb192":
		return crypto.ModeCFB192, nil
	case "cfb256":
		return crypto.ModeCFB256, nil
	default:
		return "", fmt.Errorf("AES_MODE %q is not one of cbc_128/cbc_192/cbc_256/cfb_128/cfb_192/cfb_256", raw)
	}
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
