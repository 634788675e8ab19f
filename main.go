package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidbyttow/govips/v2/vips"

	"echo-viewer/internal/auth"
	"echo-viewer/internal/database"
	"echo-viewer/internal/filesystem"
	"echo-viewer/internal/gallery"
	"echo-viewer/internal/handlers"
	"echo-viewer/internal/indexer"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/media"
	"echo-viewer/internal/memory"
	"echo-viewer/internal/metrics"
	"echo-viewer/internal/middleware"
	"echo-viewer/internal/sandbox"
	"echo-viewer/internal/startup"
	"echo-viewer/internal/workers"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memory.ConfigureFromEnv())
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)

	// Codecs
	decodeWorkers := workers.ForCPU(8)
	var backend media.Backend
	vipsErr := media.InitVips(decodeWorkers)
	startup.LogVipsInit(vips.Version, vipsErr)
	if vipsErr == nil {
		backend = media.VipsBackend{}
	}
	registry := media.NewRegistry(media.RegistryOptions{
		Backend:       backend,
		Workers:       decodeWorkers,
		Monitor:       monitor,
		RawPreviewMin: config.RawPreviewMin,
	})

	thumbnails, err := media.NewThumbnailCache(registry, media.ThumbnailOptions{
		DefaultSize: config.ThumbnailSize,
		MaxEntries:  config.ThumbnailCacheEntries,
		MaxBytes:    config.ThumbnailCacheBytes,
	})
	if err != nil {
		logging.Fatal("Failed to create thumbnail cache: %v", err)
	}

	// Authentication
	authSvc := auth.Disabled()
	var db *database.Database
	if config.AuthEnabled {
		dbStart := time.Now()
		db, err = database.New(context.Background(), config.DatabasePath)
		if err != nil {
			logging.Fatal("Failed to initialize database: %v", err)
		}
		startup.LogDatabaseInit(time.Since(dbStart))

		authSvc, err = auth.New(db, true, config.SessionExpiry)
		if err != nil {
			logging.Fatal("Failed to initialize authentication: %v", err)
		}

		// Clean up expired sessions periodically
		go func() {
			ticker := time.NewTicker(1 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := db.CleanExpiredSessions(context.Background()); err != nil {
					logging.Warn("Session cleanup failed: %v", err)
				}
				db.UpdateDBMetrics()
			}
		}()
	}

	sb, err := sandbox.New(config.BrowseRoot, config.GalleryRoot)
	if err != nil {
		logging.Fatal("Failed to initialize sandbox: %v", err)
	}

	svc, err := gallery.New(gallery.Options{
		Sandbox:    sb,
		Indexer:    indexer.New(indexer.Options{RootLabel: "Home"}),
		Decoder:    registry,
		Thumbnails: thumbnails,
		Auth:       authSvc,
	})
	if err != nil {
		logging.Fatal("Failed to initialize gallery service: %v", err)
	}

	// Setup router
	h := handlers.New(svc, authSvc)
	router := handlers.NewRouter(h, "./static")
	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	startup.LogHTTPRoutes(router, config.LogStaticFiles)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      middleware.Logger(loggingConfig)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, monitor, db)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Server error: %v", err)
	}
	// ListenAndServe returns as soon as Shutdown starts; wait for it to finish.
	<-shutdownDone
}

var shutdownDone = make(chan struct{})

func handleShutdown(srv, metricsSrv *http.Server, monitor *memory.Monitor, db *database.Database) {
	defer close(shutdownDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	monitor.Stop()
	media.ShutdownVips()
	startup.LogShutdownStepComplete("Decoders released")

	if db != nil {
		if err := db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}

	startup.LogShutdownComplete()
}
