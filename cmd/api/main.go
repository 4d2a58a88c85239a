// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quintalapp/geoscope/internal/api"
	"github.com/quintalapp/geoscope/internal/auth"
	"github.com/quintalapp/geoscope/internal/config"
	"github.com/quintalapp/geoscope/internal/db"
	"github.com/quintalapp/geoscope/internal/gate"
	"github.com/quintalapp/geoscope/internal/geocode"
	"github.com/quintalapp/geoscope/internal/health"
	"github.com/quintalapp/geoscope/internal/history"
	"github.com/quintalapp/geoscope/internal/listing"
	"github.com/quintalapp/geoscope/internal/location"
	"github.com/quintalapp/geoscope/internal/middleware"
	"github.com/quintalapp/geoscope/internal/persist"
	"github.com/quintalapp/geoscope/internal/tracing"
)

// sessionTTL is how long a session's location state survives in Redis
// without activity.
const sessionTTL = 30 * 24 * time.Hour

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Geoscope API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	tracer, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	// Optional Redis: without it sessions and rate limits live in process
	// memory, which is fine for a single instance.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		logger.Info("redis connected", "addr", opts.Addr)
	}

	// Optional Postgres: without it history and listings are in-memory.
	var dbConn *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbConn.Close()
		logger.Info("database connected")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mwMetrics := middleware.NewMetrics()
	geocodeMetrics := geocode.NewMetrics()
	gateMetrics := gate.NewMetrics()
	historyMetrics := history.NewMetrics()
	for name, reg := range map[string]interface {
		Register(prometheus.Registerer) error
	}{
		"middleware": mwMetrics,
		"geocode":    geocodeMetrics,
		"gate":       gateMetrics,
		"history":    historyMetrics,
	} {
		if err := reg.Register(registry); err != nil {
			logger.Error("failed to register metrics", "package", name, "error", err)
			os.Exit(1)
		}
	}

	// Session state
	var kv persist.KV
	if redisClient != nil {
		kv = persist.NewRedisKV(redisClient, sessionTTL)
	} else {
		kv = persist.NewInMemoryKV()
	}

	// Visit history
	var historyRepo history.Repository
	if dbConn != nil {
		historyRepo = history.NewPostgresRepository(dbConn)
	} else {
		historyRepo = history.NewInMemoryRepository()
	}
	writer := history.NewWriter(history.WriterConfig{
		QueueSize: cfg.HistoryQueueSize,
		Logger:    logger,
		Metrics:   historyMetrics,
	}, historyRepo)
	if err := writer.Start(context.Background()); err != nil {
		logger.Error("failed to start history writer", "error", err)
		os.Exit(1)
	}
	defer writer.Stop()

	manager := location.NewManager(kv, writer, logger)

	// Geocoding providers. Google when an API key is configured,
	// Nominatim otherwise. ViaCEP handles postal codes either way.
	httpClient := geocode.NewHTTPClient(time.Duration(cfg.GeocodeTimeoutSec) * time.Second)
	var provider geocode.Provider
	if cfg.GoogleAPIKey != "" {
		provider = geocode.NewGoogleProvider(cfg.GoogleAPIKey, cfg.GoogleEndpoint, httpClient)
		logger.Info("geocoding via google")
	} else {
		provider = geocode.NewNominatimProvider(cfg.NominatimEndpoint, httpClient)
		logger.Info("geocoding via nominatim")
	}
	postal := geocode.NewViaCEPProvider(cfg.ViaCEPEndpoint, httpClient)
	resolver := geocode.NewResolver(provider, postal, geocodeMetrics, logger)

	// Listings
	var listingRepo listing.Repository
	if dbConn != nil {
		listingRepo = listing.NewPostgresRepository(dbConn)
	} else {
		listingRepo = listing.NewInMemoryRepository()
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Rate limiting
	var limitStore middleware.RateLimitStore
	if redisClient != nil {
		limitStore = middleware.NewRedisRateLimitStore(redisClient, mwMetrics)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		limitStore = memStore
	}
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.GlobalRateLimit,
		WindowDuration:    time.Minute,
	}
	resolveLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.ResolveRateLimit,
		WindowDuration:    time.Minute,
	}
	resolveLimiter := middleware.RateLimiter(limitStore, resolveLimit, middleware.UserKeyFunc(), mwMetrics, "resolve")

	// Handlers
	locationHandlers := api.NewLocationHandlers(manager, resolver, logger)
	gateHandlers := api.NewGateHandlers(manager, gateMetrics)
	feedHandlers := api.NewFeedHandlers(manager, listingRepo, gateMetrics)
	historyHandlers := api.NewHistoryHandlers(historyRepo)

	healthCfg := api.HealthHandlersConfig{}
	if dbConn != nil {
		healthCfg.DBChecker = health.NewDBChecker(dbConn)
	}
	if redisClient != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthCfg)

	mux := http.NewServeMux()

	mux.Handle("POST /location/resolve", resolveLimiter(http.HandlerFunc(locationHandlers.ResolveLocation)))
	mux.Handle("POST /location/search", resolveLimiter(http.HandlerFunc(locationHandlers.SearchLocation)))
	mux.HandleFunc("GET /location", locationHandlers.GetLocation)
	mux.HandleFunc("PUT /location/scope", locationHandlers.SetScope)
	mux.HandleFunc("PUT /location/neighborhood", locationHandlers.EditNeighborhood)
	mux.HandleFunc("GET /location/history", historyHandlers.GetHistory)

	mux.HandleFunc("POST /gate/check", gateHandlers.CheckAccess)

	mux.HandleFunc("GET /feed", feedHandlers.GetFeed)
	mux.HandleFunc("POST /listings", feedHandlers.CreateListing)
	mux.HandleFunc("GET /listings/{id}", feedHandlers.GetListing)

	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound,
				"The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"geoscope-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: RequestID -> Logging -> HTTPMetrics -> CORS -> Auth -> RateLimiter
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, globalLimit, middleware.UserKeyFunc(), mwMetrics, "global")(handler)
	handler = middleware.Auth(jwtService)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", api.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.HTTPMetrics(mwMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	if tracer.IsEnabled() {
		handler = otelhttp.NewHandler(handler, "geoscope-api")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
