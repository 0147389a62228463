package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	MetricsAddr     string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	AllowedOrigins  []string
	GroupLockTTL    time.Duration
	RepriceWorkers  int
	RepriceWriteRPS int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/innkeeper?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		AllowedOrigins:  strings.Split(env("CORS_ORIGINS", "*"), ","),
		GroupLockTTL:    time.Duration(atoi("GROUP_LOCK_TTL_SECONDS", 10)) * time.Second,
		RepriceWorkers:  atoi("REPRICE_WORKERS", 4),
		RepriceWriteRPS: atoi("REPRICE_WRITE_RPS", 20),
	}
	if !strings.Contains(c.MySQLDSN, "parseTime=true") {
		log.Warn().Msg("MYSQL_DSN without parseTime=true, date columns will not scan")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
