package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GooferByte/wellness-rewards/internal/bootstrap"
	"github.com/GooferByte/wellness-rewards/internal/config"
	"github.com/GooferByte/wellness-rewards/internal/http"
	"github.com/GooferByte/wellness-rewards/internal/logger"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel, cfg.LogFormat)
	rec := metrics.New()

	engine, closeStore, err := bootstrap.Engine(context.Background(), cfg, log, rec)
	if err != nil {
		log.WithError(err).Fatal("failed to open reward ledger")
	}
	defer func() {
		engine.Close()
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("closing store")
		}
	}()

	router := http.Router(engine, log, rec)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithField("driver", cfg.StoreDriver).Infof("wellness rewards service listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
