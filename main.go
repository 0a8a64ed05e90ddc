package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/api"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/digest"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/fs"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/notifications"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/search"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/taskqueue"
)

func main() {
	cfg := config.Get()

	// Database
	database, err := db.Open(db.Config{
		Path:            cfg.DatabasePath,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		LogQueries:      cfg.DBLogQueries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	// Digester registry is fixed for the life of the process
	digest.InitializeRegistry()

	notif := notifications.NewService()

	// Task queue + indexer handlers
	queueWorker := taskqueue.NewWorker(2*time.Second, 20)
	if err := search.RegisterHandlers(queueWorker); err != nil {
		log.Fatal().Err(err).Msg("failed to register task handlers")
	}
	queueWorker.Start()

	// Backfill digest placeholders for files that predate newer digesters
	go func() {
		if err := digest.EnsureAllFiles(digest.DefaultRegistry); err != nil {
			log.Error().Err(err).Msg("digest placeholder backfill failed")
		}
	}()

	// Digest pipeline
	coordinator := digest.NewCoordinator(digest.DefaultRegistry, notif)
	supervisor := digest.NewSupervisor(digest.DefaultRegistry, coordinator)

	// Filesystem watcher feeds the supervisor
	fsService := fs.NewService(fs.Config{
		DataRoot:     cfg.UserDataDir,
		WatchEnabled: true,
	}, cfg.ExcludedPrefixes)
	fsService.SetFileChangeHandler(func(event fs.FileChangeEvent) {
		supervisor.OnFileChange(event)
	})

	if err := fsService.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start filesystem service")
	}

	if err := supervisor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start digest supervisor")
	}

	// Operational HTTP API
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinLogger())

	handlers := api.NewHandlers(digest.DefaultRegistry, coordinator, notif)
	handlers.SetupRoutes(r)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown failed")
	}

	supervisor.Stop()
	fsService.Stop()
	queueWorker.Stop()

	log.Info().Msg("shutdown complete")
}
