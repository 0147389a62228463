package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "innkeeper/internal/adapters/http_server"
	"innkeeper/internal/adapters/observability"
	redisad "innkeeper/internal/adapters/redis"
	"innkeeper/internal/app"
	"innkeeper/internal/shared"
	mysqlrepo "innkeeper/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	locks := redisad.NewGroupLock(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.GroupLockTTL)
	pricing := app.NewPricingService(repo)
	bookings := app.NewBookingService(repo, locks)

	// http
	srv := server.New(cfg.AllowedOrigins)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Pricing: pricing, Bookings: bookings})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
