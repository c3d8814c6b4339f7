package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/minimart/storefront/internal/cli"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/config"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
	"github.com/minimart/storefront/internal/server/services"
)

func main() {

	ctx := context.Background()
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args, os.Getenv)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	app := cli.NewApp(
		services.NewAccountService(db, rm, logger),
		services.NewMaintenanceService(db, rm, logger),
		func(ctx context.Context) error { return rm.RunMigrations(ctx, db) },
		os.Stdin,
		os.Stdout,
	)

	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			log.Printf("%v", err)
		}
		db.Close()
		os.Exit(1)
	}
}
