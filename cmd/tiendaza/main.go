package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tiendaza/internal/config"
	"tiendaza/internal/http/handlers"
	applog "tiendaza/internal/log"
	"tiendaza/internal/repos"
	"tiendaza/internal/session"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	closer, err := applog.Tee(cfg.LogFile)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo repos.Repository
	switch cfg.Repo {
	case "local":
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		repo = repos.NewLocalRepo(db)
		log.Printf("[repo] local sqlite catalog at %s", cfg.DBDSN)
	default:
		repo = repos.NewAPIRepo(cfg.APIBaseURL, cfg.APITimeout)
		log.Printf("[repo] remote API at %s", cfg.APIBaseURL)
	}

	store := session.NewStore(ctx, repo, cfg.SessionTTL)
	go store.Run(ctx)

	app := handlers.NewApp(cfg, handlers.NewDeps(store, cfg))

	go func() {
		<-ctx.Done()
		log.Printf("[shutdown] draining connections")
		_ = app.Shutdown()
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
