package config

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60"`

	// An empty DBHost runs the service without the users table and delivery log.
	DBHost            string        `env:"DB_HOST"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	RedisAddr            string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	RedisDB              int           `env:"REDIS_DB,default=0"`
	RedisKeyPrefix       string        `env:"REDIS_KEY_PREFIX,default=pricewatch:"`
	RedisDialTimeout     time.Duration `env:"REDIS_DIAL_TIMEOUT,default=2s"`
	RedisOpTimeout       time.Duration `env:"REDIS_OP_TIMEOUT,default=1s"`
	CacheRecheckInterval time.Duration `env:"CACHE_RECHECK_INTERVAL,default=5s"`
	CacheSweepInterval   time.Duration `env:"CACHE_SWEEP_INTERVAL,default=1m"`

	PriceAPIBaseURL string            `env:"PRICE_API_BASE_URL,default=https://api.coingecko.com/api/v3"`
	PriceAPIKey     string            `env:"PRICE_API_KEY"`
	PriceAPITimeout time.Duration     `env:"PRICE_API_TIMEOUT,default=10s"`
	PriceSymbolIDs  map[string]string `env:"PRICE_SYMBOL_IDS,default=BTC:bitcoin,ETH:ethereum,SOL:solana,DOT:polkadot,ADA:cardano,XRP:ripple,DOGE:dogecoin,BNB:binancecoin,AVAX:avalanche-2,LINK:chainlink,MATIC:matic-network,TON:the-open-network"`

	PollInterval    time.Duration `env:"POLL_INTERVAL,default=30s"`
	PollSkipOverlap bool          `env:"POLL_SKIP_OVERLAP,default=true"`
	PriceCacheTTL   time.Duration `env:"PRICE_CACHE_TTL,default=300s"`

	WebhookTimeout     time.Duration `env:"WEBHOOK_TIMEOUT,default=5s"`
	WebhookMaxAttempts int           `env:"WEBHOOK_MAX_ATTEMPTS,default=3"`
	WebhookBackoff     time.Duration `env:"WEBHOOK_BACKOFF,default=1s"`

	HTTPAddr         string `env:"HTTP_ADDR,default=:8080"`
	MetricsNamespace string `env:"METRICS_NAMESPACE,default=pricewatch"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`
	LogFormat        string `env:"LOG_FORMAT,default=json"`
}

// DatabaseEnabled reports whether a Postgres host is configured.
func (c Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
