package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbonmarket/internal/config"
	"carbonmarket/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var fiberApp *fiber.App
var appCfg *config.Config
var appRuntime *router.Runtime

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	appCfg = cfg
	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}
	fiberApp = app
	appRuntime = rt
}

func Handler(w http.ResponseWriter, r *http.Request) {
	router.Handler(fiberApp).ServeHTTP(w, r)
}

func main() {
	ctx := context.Background()
	if appRuntime.DB != nil {
		sqlDB, err := appRuntime.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("database: get DB")
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		log.Info().Msg("database connected")
	}
	if appRuntime.Redis != nil {
		if err := appRuntime.Redis.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Info().Msg("redis connected")
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(appCfg.SessionSweep, func() {
		appRuntime.Registry.Sweep(appCfg.SessionMaxIdle)
	}); err != nil {
		log.Fatal().Err(err).Str("spec", appCfg.SessionSweep).Msg("invalid SESSION_SWEEP")
	}
	sweeper.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		<-sweeper.Stop().Done()
		if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", appCfg.Port).Str("health", "http://localhost:"+appCfg.Port+"/health/json").Msg("server running")
	if err := fiberApp.Listen(":" + appCfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
	if appRuntime.Redis != nil {
		_ = appRuntime.Redis.Close()
	}
}
