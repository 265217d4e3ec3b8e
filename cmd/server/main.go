package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server"
	"github.com/dmitrijs2005/rechub/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.NewProductionZapLogger(cfg.Debug)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer logger.Sync()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return
	}

	app.Run(ctx)

}
