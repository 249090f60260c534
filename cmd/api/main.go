package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cgscacau/green-belt-app-sub001/config"
	"github.com/cgscacau/green-belt-app-sub001/internal/bootstrap"
	"github.com/cgscacau/green-belt-app-sub001/internal/logging"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/repository"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/statesync"
)

const serviceName = "green-belt-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.OpenBackends(ctx, cfg, bootstrap.StoreOptions{})
	if err != nil {
		log.Fatalf("backends: %v", err)
	}
	defer backends.Close()
	if backends.Verifier == nil {
		log.Printf("Warning: Firebase auth disabled, callers are identified by X-User-Id")
	}

	sync := statesync.NewSynchronizer(backends.Store, statesync.NewCache())
	repo := repository.NewProjectRepository(backends.Store, sync,
		repository.WithDatasetLimit(cfg.Limits.DatasetMaxBytes))

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		Backend:        cfg.Store.Backend,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Backends:       backends,
		Repo:           repo,
		RequestsPerSec: cfg.Limits.RequestsPerSec,
		Burst:          cfg.Limits.Burst,
		MaxUploadBytes: cfg.Limits.UploadMaxBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on :%s (store=%s)", cfg.Server.Port, cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
