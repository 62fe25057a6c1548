package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/ringauth/internal/app"
	"github.com/dropDatabas3/ringauth/internal/config"
	"github.com/dropDatabas3/ringauth/internal/http/controllers"
	"github.com/dropDatabas3/ringauth/internal/http/router"
	"github.com/dropDatabas3/ringauth/internal/http/server"
	"github.com/dropDatabas3/ringauth/internal/observability/logger"

	// Adapters de store: se registran via init()
	_ "github.com/dropDatabas3/ringauth/internal/store/memory"
	_ "github.com/dropDatabas3/ringauth/internal/store/pg"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml (opcional)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.Build(ctx, cfg, nil)
	if err != nil {
		lg.Fatal("wiring failed", logger.Err(err))
	}
	defer func() {
		if err := c.Close(); err != nil {
			lg.Warn("cleanup error", logger.Err(err))
		}
	}()

	h := router.New(router.Deps{
		Auth:        controllers.NewAuthController(c.Auth),
		Ring:        controllers.NewRingController(c.Pool),
		Health:      controllers.NewHealthController(c.Users, c.Pool.Ring().Len, version),
		RateLimiter: c.RateLimiter,
		AdminToken:  cfg.Server.AdminToken,
	})
	if cfg.Server.AdminToken == "" {
		lg.Warn("ADMIN_TOKEN not set: /v1/ring is unauthenticated")
	}

	err = server.Run(ctx, cfg.Server.Addr, h, server.Options{
		ReadTimeout:     config.Dur(cfg.Server.ReadTimeout, 0),
		WriteTimeout:    config.Dur(cfg.Server.WriteTimeout, 0),
		ShutdownTimeout: config.Dur(cfg.Server.ShutdownTimeout, 0),
	})
	if err != nil {
		lg.Error("http server failed", logger.Err(err))
		return
	}
	lg.Info("bye")
}
