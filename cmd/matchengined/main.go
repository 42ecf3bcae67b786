// Command matchengined exposes the illustrative cron/HTTP trigger surface
// of spec.md §6.3: a single POST /tick endpoint that reads the
// recognized-options environment table into matching.EngineOptions,
// acquires the engine lock, runs one tick, and persists the result.
//
// Grounded on cmd/tarsy/main.go: flag + env configuration, godotenv,
// gin.Default(), and a /health endpoint reporting store/runtime stats.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/affinitylabs/matchengine/internal/config"
	"github.com/affinitylabs/matchengine/internal/llmprovider"
	"github.com/affinitylabs/matchengine/internal/matching"
	"github.com/affinitylabs/matchengine/pkg/store"
	"github.com/affinitylabs/matchengine/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	slog.Info("starting matchengined", "version", version.Full(), "http_port", httpPort)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load engine config", "error", err)
		os.Exit(1)
	}

	adapter, err := newAdapter(context.Background())
	if err != nil {
		slog.Error("failed to initialize store adapter", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			slog.Error("error closing store adapter", "error", err)
		}
	}()

	llm, err := newLLMProvider(cfg)
	if err != nil {
		slog.Error("failed to initialize llm provider", "error", err)
		os.Exit(1)
	}

	srv := &server{cfg: cfg, adapter: adapter, deps: &matching.Dependencies{LLM: llm}}

	router := gin.Default()
	router.GET("/health", srv.handleHealth)
	router.POST("/tick", srv.handleTick)

	slog.Info("http server listening", "addr", ":"+httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		slog.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}

// newAdapter selects Postgres when DB_HOST or DB_PASSWORD is set, falling
// back to an empty in-memory adapter otherwise — the
// same "degrade to an in-process default" behavior cmd/tarsy's database
// bootstrap does not need (it always requires Postgres) but which this
// reference binary offers so `go run ./cmd/matchengined` works with zero
// external services.
func newAdapter(ctx context.Context) (store.Adapter, error) {
	if os.Getenv("DB_HOST") == "" && os.Getenv("DB_PASSWORD") == "" {
		slog.Info("no DB_HOST/DB_PASSWORD set, using in-memory store adapter")
		return store.NewMemory(matching.EngineState{}), nil
	}
	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pg, err := store.NewPostgres(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to postgres store adapter", "host", dbCfg.Host, "database", dbCfg.Database)
	return pg, nil
}

func newLLMProvider(cfg config.Config) (matching.LLMProvider, error) {
	switch cfg.LLMMode {
	case config.LLMModeNone:
		return nil, nil
	case config.LLMModeHeuristic:
		return llmprovider.Heuristic{}, nil
	case config.LLMModeOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("MATCHING_LLM_MODE=openai requires OPENAI_API_KEY")
		}
		return llmprovider.NewOpenAI(apiKey, os.Getenv("OPENAI_MODEL")), nil
	case config.LLMModeGRPC:
		addr := getEnv("MATCHING_GRPC_SCORER_ADDR", "localhost:9090")
		return llmprovider.NewGRPC(addr)
	default:
		return nil, errors.New("unrecognized MATCHING_LLM_MODE: " + cfg.LLMMode)
	}
}

type server struct {
	cfg     config.Config
	adapter store.Adapter
	deps    *matching.Dependencies

	lastRunAt        time.Time
	lastRunDuration  time.Duration
	lastRunMatches   int
}

func (s *server) handleHealth(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	state, err := s.adapter.Load(reqCtx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"version":             version.Full(),
		"persona_count":       len(state.Personas),
		"last_run_at":         s.lastRunAt,
		"last_run_duration_ms": s.lastRunDuration.Milliseconds(),
		"last_run_matches":    s.lastRunMatches,
	})
}

// handleTick implements the §6.3 cron/trigger surface: acquire the lock,
// sync personas, load state, run one tick, save state, and return the
// response envelope.
func (s *server) handleTick(c *gin.Context) {
	ctx := c.Request.Context()

	release, err := s.adapter.Lock(ctx)
	if err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "locked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "ok", "reason": err.Error()})
		return
	}
	defer func() {
		if err := release(ctx); err != nil {
			slog.Error("failed to release engine lock", "error", err)
		}
	}()

	if err := s.adapter.SyncPersonasFromUsers(ctx); err != nil {
		slog.Error("failed to sync personas from users", "error", err)
	}

	state, err := s.adapter.Load(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "ok", "reason": err.Error()})
		return
	}

	opts := s.cfg.EngineOptions()
	opts.Now = time.Now().UTC()

	windowHours := s.cfg.PriorityMatchWindowHours
	if opts.PriorityIds, err = s.adapter.ListPriorityPersonaIds(ctx, windowHours); err != nil {
		slog.Error("failed to list priority personas", "error", err)
	}
	if opts.PrioritySchedulePersonaIds, err = s.adapter.ListPrioritySchedulePersonaIds(ctx, windowHours); err != nil {
		slog.Error("failed to list priority-schedule personas", "error", err)
	}
	if opts.FilterPersonaIds, err = s.adapter.ListFilterPersonaIds(ctx, windowHours); err != nil {
		slog.Error("failed to list filter personas", "error", err)
	}

	start := time.Now()
	next, result, err := matching.RunEngineTick(ctx, state, opts, s.deps)
	duration := time.Since(start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "ok", "reason": err.Error()})
		return
	}

	if err := s.adapter.Save(ctx, next); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "ok", "reason": err.Error()})
		return
	}

	s.lastRunAt = start.UTC()
	s.lastRunDuration = duration
	s.lastRunMatches = len(result.MatchesCreated)

	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"ticks":               result.Ticks,
		"duration_ms":         duration.Milliseconds(),
		"matches_created":     len(result.MatchesCreated),
		"personas_updated":    len(result.PersonasUpdated),
		"feedback_processed":  result.FeedbackProcessed,
		"cursor":              next.Cursor,
		"persona_count":       len(next.Personas),
		"timed_out":           result.TimedOut,
	})
}
