// Command server runs the AwayKeeper bot: reconciliation, retention and the
// daily reports.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"

	"github.com/dmitrijs2005/awaykeeper/internal/server"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/joho/godotenv"
)

func run(ctx context.Context) error {
	// no .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("awaykeeper: %v", err)
	}
}
