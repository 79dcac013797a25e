package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	SessionTTL     time.Duration
	CarouselPeriod time.Duration
	WhatsApp       string
	ContactEmail   string
	WebhookURL     string
	WebhookToken   string
	RelayWorkers   int
	RelayBatch     int
	RelayRPS       int
	RelayMaxTries  int
	RelayInterval  time.Duration
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Real environment variables win over .env.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/alem?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		SessionTTL:     time.Duration(atoi("SESSION_TTL_SECONDS", 7200)) * time.Second,
		CarouselPeriod: time.Duration(atoi("CAROUSEL_PERIOD_MS", 6000)) * time.Millisecond,
		WhatsApp:       env("WHATSAPP_NUMBER", "351912345678"),
		ContactEmail:   env("CONTACT_EMAIL", "concierge@alem.pt"),
		WebhookURL:     env("LEAD_WEBHOOK_URL", ""),
		WebhookToken:   env("LEAD_WEBHOOK_TOKEN", ""),
		RelayWorkers:   atoi("RELAY_WORKERS", 4),
		RelayBatch:     atoi("RELAY_BATCH", 50),
		RelayRPS:       atoi("RELAY_RPS", 5),
		RelayMaxTries:  atoi("RELAY_MAX_ATTEMPTS", 5),
		RelayInterval:  time.Duration(atoi("RELAY_INTERVAL_SECONDS", 30)) * time.Second,
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
