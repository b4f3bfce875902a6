package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kigurumi/api/internal/app"
	"kigurumi/api/internal/cache"
	"kigurumi/api/internal/config"
	"kigurumi/api/internal/crawler"
	"kigurumi/api/internal/store"
	"kigurumi/api/internal/workflow"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	respCache, err := cache.New(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer respCache.Close()

	engine := workflow.NewService(workflow.NewStore(dataStore), respCache)
	twitter := crawler.NewTwitterClient(cfg.TwitterAPIBase)
	extractor := crawler.NewExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	service := app.NewService(cfg, dataStore, engine, respCache, twitter, extractor)
	if err := service.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("WARNING: admin bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Kigurumi API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
