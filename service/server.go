package service

import (
	"context"
	"fmt"
	"log"

	"skymock/app/config"
	"skymock/app/repositories"
	"skymock/app/routes"
)

// RunServer opens the store and serves the application until ctx ends.
func RunServer(ctx context.Context, cfg *config.Config) error {
	db, err := repositories.Open(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := routes.SetupAppRoutes(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}
	defer app.Close()

	log.Printf("Starting skymock on %s (feed %s)", cfg.Server.Addr, cfg.Feed.Host)
	if err := routes.StartServer(ctx, cfg.Server.Addr, app.Handler); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
