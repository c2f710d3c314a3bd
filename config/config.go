package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every runtime knob of the sync core. Values come from the
// environment (main loads .env first via godotenv); each has a default good
// enough for a development device.
type Config struct {
	StorePath string

	RemoteBaseURL string
	RemoteAPIKey  string

	// AMQP endpoint of the background asset-caching agent. Empty disables
	// asset forwarding entirely.
	AMQPURL         string
	AssetQueue      string
	AssetHostPrefix string

	EssentialTTL   time.Duration // catalog staleness window, good connection
	ConstrainedTTL time.Duration // staleness window when constrained/metered
	SyncInterval   time.Duration // periodic reconciliation trigger
	SettleDelay    time.Duration // wait after an online transition
	RetryCooldown  time.Duration // failed outbox entry re-eligibility

	RetentionDays   int // completed-order history kept, by age
	MaxCachedOrders int // completed-order history kept, by recency rank

	DeviceConstrained bool
	ConnectionMetered bool

	ListenAddr string
}

func Load() Config {
	return Config{
		StorePath:         getEnv("POS_STORE_PATH", "pos_sync.db"),
		RemoteBaseURL:     getEnv("POS_REMOTE_URL", "http://localhost:8090"),
		RemoteAPIKey:      getEnv("POS_REMOTE_KEY", ""),
		AMQPURL:           getEnv("POS_AMQP_URL", ""),
		AssetQueue:        getEnv("POS_ASSET_QUEUE", "asset_cache"),
		AssetHostPrefix:   getEnv("POS_ASSET_HOST", "https://cdn."),
		EssentialTTL:      getDuration("POS_ESSENTIAL_TTL", time.Hour),
		ConstrainedTTL:    getDuration("POS_CONSTRAINED_TTL", 3*time.Hour),
		SyncInterval:      getDuration("POS_SYNC_INTERVAL", 30*time.Second),
		SettleDelay:       getDuration("POS_SETTLE_DELAY", 2*time.Second),
		RetryCooldown:     getDuration("POS_RETRY_COOLDOWN", 2*time.Minute),
		RetentionDays:     getInt("POS_RETENTION_DAYS", 30),
		MaxCachedOrders:   getInt("POS_MAX_ORDERS", 200),
		DeviceConstrained: getBool("POS_DEVICE_CONSTRAINED", false),
		ConnectionMetered: getBool("POS_CONNECTION_METERED", false),
		ListenAddr:        getEnv("POS_LISTEN_ADDR", ":8085"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
