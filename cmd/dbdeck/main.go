// Package main is the dbdeck command-line client for the database
// management API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nkovachev/dbdeck/internal/config"
	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/nkovachev/dbdeck/internal/session"
	"github.com/nkovachev/dbdeck/internal/sharing"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dbdeck:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	storage, err := session.NewFileStorage(cfg.Session.File)
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}
	store := session.NewStore(storage)
	store.Restore()

	client := gateway.New(cfg.API.BaseURL, store,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithUnauthorizedHook(func() {
			// The CLI's login boundary: tell the user to re-authenticate.
			fmt.Fprintln(os.Stderr, "session expired, run `dbdeck login` to sign in again")
		}),
	)

	return newRootCmd(client, sharing.New(client)).Execute()
}
