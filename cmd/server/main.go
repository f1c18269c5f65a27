// Package main provides the bid engine service: scheduled analysis passes
// per entity, an HTTP API for on-demand runs and the active multiplier set,
// and a WebSocket stream of run results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/feedback"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/observability"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/orchestrator"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
	chstore "github.com/mbicorp/amazonbid-engine-sub000/internal/storage/clickhouse"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage/memory"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage/migrations"
	pgstore "github.com/mbicorp/amazonbid-engine-sub000/internal/storage/postgres"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/stream"
)

// Server holds the engine components and schedule state.
type Server struct {
	entities    []string
	runInterval time.Duration

	stores  *allStores
	runner  *orchestrator.Runner
	hub     *stream.Hub
	metrics *observability.Metrics
	logger  *log.Logger

	mu      sync.Mutex
	started time.Time
	lastRun time.Time
	runs    int
	running bool
}

// allStores holds all storage implementations.
type allStores struct {
	configStore       storage.ConfigStore
	multiplierStore   storage.MultiplierStore
	feedbackStore     storage.FeedbackStore
	rollbackStore     storage.RollbackStore
	sampleStore       storage.SampleStore
	dailySummaryStore storage.DailySummaryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	entities := flag.String("entities", os.Getenv("BID_ENTITIES"), "Comma-separated entity IDs to analyze")
	runInterval := flag.Duration("run-interval", 1*time.Hour, "Analysis pass interval")
	evaluationDelay := flag.Duration("evaluation-delay", feedback.DefaultEvaluationDelay, "Feedback evaluation delay")
	byWeekday := flag.Bool("by-weekday", false, "Additionally analyze (hour, weekday) buckets")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address (API, metrics, WebSocket)")
	migrate := flag.Bool("migrate", true, "Run database migrations on startup")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	entityList := splitList(*entities)
	if len(entityList) == 0 {
		logger.Fatal("--entities is required (comma-separated entity IDs)")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	logger.Printf("Analyzing entities: %v", entityList)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("bid_engine")
	hub := stream.NewHub(log.New(os.Stdout, "[stream] ", log.LstdFlags)).
		WithClientGauge(metrics.StreamClients)

	runner := orchestrator.New(orchestrator.Options{
		ConfigStore:       stores.configStore,
		MultiplierStore:   stores.multiplierStore,
		FeedbackStore:     stores.feedbackStore,
		RollbackStore:     stores.rollbackStore,
		SampleStore:       stores.sampleStore,
		DailySummaryStore: stores.dailySummaryStore,
		ByWeekday:         *byWeekday,
		EvaluationDelay:   *evaluationDelay,
		Logger:            log.New(os.Stdout, "[engine] ", log.LstdFlags),
		Metrics:           metrics,
		Hub:               hub,
	})

	server := &Server{
		entities:    entityList,
		runInterval: *runInterval,
		stores:      stores,
		runner:      runner,
		hub:         hub,
		metrics:     metrics,
		logger:      logger,
		started:     time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the scheduler
	err = server.Run(ctx)
	done <- err
	cancel()
	hub.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// splitList splits a comma-separated flag value, dropping empty parts.
func splitList(s string) []string {
	var list []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			configStore:       memory.NewConfigStore(),
			multiplierStore:   memory.NewMultiplierStore(),
			feedbackStore:     memory.NewFeedbackStore(),
			rollbackStore:     memory.NewRollbackStore(),
			sampleStore:       memory.NewSampleStore(),
			dailySummaryStore: memory.NewDailySummaryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL (configs, multipliers, feedback, rollbacks)
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	// ClickHouse (performance samples, daily summaries)
	var chConn *chstore.Conn
	if migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		configStore:       pgstore.NewConfigStore(pool),
		multiplierStore:   pgstore.NewMultiplierStore(pool),
		feedbackStore:     pgstore.NewFeedbackStore(pool),
		rollbackStore:     pgstore.NewRollbackStore(pool),
		sampleStore:       chstore.NewSampleStore(chConn),
		dailySummaryStore: chstore.NewDailySummaryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the analysis scheduler. A full pass over all entities runs
// immediately, then on every tick.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting scheduler (interval: %v)...", s.runInterval)

	s.runAll(ctx)

	ticker := time.NewTicker(s.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll executes one analysis pass for every configured entity. A failing
// entity does not block the others.
func (s *Server) runAll(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Analysis pass already running, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}()

	start := time.Now()
	for _, entityID := range s.entities {
		if ctx.Err() != nil {
			return
		}
		result, err := s.runner.RunEntity(ctx, entityID)
		if err != nil {
			s.logger.Printf("Entity %s failed: %v", entityID, err)
			s.metrics.RunErrors.WithLabelValues("run").Inc()
			continue
		}
		if result.RolledBack {
			s.logger.Printf("Entity %s rolled back: %s", entityID, result.RollbackReason)
		}
	}
	s.logger.Printf("Analysis pass completed in %v (%d entities)", time.Since(start), len(s.entities))
}

// startHTTPServer starts the HTTP server for the API, health, metrics, and
// the WebSocket stream.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Run result stream
	mux.HandleFunc("/ws", s.hub.ServeWS)

	// Entity API
	mux.HandleFunc("POST /api/entities/{id}/run", s.handleRunEntity)
	mux.HandleFunc("GET /api/entities/{id}/multipliers", s.handleGetMultipliers)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// handleRunEntity triggers one on-demand analysis pass and returns the run
// result as JSON.
func (s *Server) handleRunEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")

	result, err := s.runner.RunEntity(r.Context(), entityID)
	if err != nil {
		s.logger.Printf("On-demand run for %s failed: %v", entityID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleGetMultipliers returns the entity's active multiplier set.
func (s *Server) handleGetMultipliers(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("id")

	active, err := s.stores.multiplierStore.GetActive(r.Context(), entityID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type multiplierResponse struct {
		Key           string    `json:"key"`
		Hour          int       `json:"hour"`
		Weekday       *int      `json:"weekday,omitempty"`
		Multiplier    float64   `json:"multiplier"`
		Confidence    string    `json:"confidence"`
		EffectiveFrom time.Time `json:"effective_from"`
	}

	resp := make([]multiplierResponse, len(active))
	for i, m := range active {
		resp[i] = multiplierResponse{
			Key:           m.Key(),
			Hour:          m.Hour,
			Weekday:       m.Weekday,
			Multiplier:    m.Multiplier,
			Confidence:    string(m.Confidence),
			EffectiveFrom: m.EffectiveFrom,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Entities      []string  `json:"entities"`
	LastRun       time.Time `json:"last_run,omitempty"`
	Runs          int       `json:"runs"`
	Running       bool      `json:"running"`
	StreamClients int       `json:"stream_clients"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Entities:      s.entities,
		LastRun:       s.lastRun,
		Runs:          s.runs,
		Running:       s.running,
		StreamClients: s.hub.ClientCount(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
