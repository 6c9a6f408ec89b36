// Command parley is the main entry point for the Parley conversation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parley-ai/parley/internal/chat"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/feedback"
	"github.com/parley-ai/parley/internal/health"
	"github.com/parley-ai/parley/internal/memsync"
	"github.com/parley-ai/parley/internal/observe"
	"github.com/parley-ai/parley/internal/resilience"
	"github.com/parley-ai/parley/pkg/persist"
	persistfile "github.com/parley-ai/parley/pkg/persist/file"
	persistpg "github.com/parley-ai/parley/pkg/persist/postgres"
	"github.com/parley-ai/parley/pkg/provider/assist"
	assistopenai "github.com/parley-ai/parley/pkg/provider/assist/openai"
	"github.com/parley-ai/parley/pkg/provider/tts"
	"github.com/parley-ai/parley/pkg/provider/tts/elevenlabs"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// defaultAssistantModel is used when the config names no assistant model.
const defaultAssistantModel = "gpt-4o-mini"

// shutdownTimeout bounds the final memory flush and server drain.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "parley: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("parley starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	metricShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Snapshot store ────────────────────────────────────────────────────────
	snapshots, closeStore, err := buildSnapshotStore(ctx, cfg.Persistence)
	if err != nil {
		slog.Error("failed to open snapshot store", "err", err)
		return 1
	}
	defer closeStore()

	// ── Remote providers ──────────────────────────────────────────────────────
	assistant, err := buildAssistant(cfg.Assistant)
	if err != nil {
		slog.Error("failed to create assistant provider", "err", err)
		return 1
	}
	speech, err := buildSpeech(cfg.Speech)
	if err != nil {
		slog.Error("failed to create speech provider", "err", err)
		return 1
	}

	// ── Core services ─────────────────────────────────────────────────────────
	scheduler := memsync.New(assistant,
		memsync.WithHistoryWindow(cfg.Memory.HistoryWindow),
		memsync.WithDebounce(cfg.Memory.Debounce.Std()),
		memsync.WithMetrics(metrics),
	)
	coordinator := feedback.New(assistant, speech, feedback.WithMetrics(metrics))
	store := chat.New(assistant, scheduler, snapshots,
		chat.WithMetrics(metrics),
		chat.WithCoordinator(coordinator),
	)

	store.Restore(ctx)
	seedConversation(store, cfg.Profile)

	// ── HTTP server (metrics + health) ────────────────────────────────────────
	var server *http.Server
	serverErr := make(chan error, 1)
	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		health.New(
			health.StoreChecker("snapshots", snapshots, chat.SnapshotKey),
		).Register(mux)

		server = &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: observe.Middleware(metrics)(mux),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
		slog.Info("metrics server listening", "addr", cfg.Server.ListenAddr)
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		slog.Error("http server error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Flush memory before tearing anything down; losing the latest memory is
	// worse than a slow exit.
	store.FlushAll(shutdownCtx)

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
	}
	if err := metricShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Component wiring ──────────────────────────────────────────────────────────

// buildSnapshotStore opens the configured persistence backend. The returned
// close function releases backend resources and must be called on exit.
func buildSnapshotStore(ctx context.Context, cfg config.PersistConfig) (persist.Store, func(), error) {
	switch cfg.Backend {
	case config.PersistPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := persistpg.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("snapshot store ready", "backend", "postgres")
		return store, pool.Close, nil
	default:
		store, err := persistfile.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("snapshot store ready", "backend", "file", "path", cfg.Path)
		return store, func() {}, nil
	}
}

func buildAssistant(entry config.ProviderEntry) (assist.Provider, error) {
	model := entry.Model
	if model == "" {
		model = defaultAssistantModel
	}
	var opts []assistopenai.Option
	if entry.BaseURL != "" {
		opts = append(opts, assistopenai.WithBaseURL(entry.BaseURL))
	}
	if entry.Timeout.Std() > 0 {
		opts = append(opts, assistopenai.WithTimeout(entry.Timeout.Std()))
	}
	p, err := assistopenai.New(entry.APIKey, model, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "assistant", "model", model)
	return resilience.NewAssistant(p, resilience.CircuitBreakerConfig{Name: "assistant"}), nil
}

// buildSpeech creates the read-aloud provider. A missing API key disables
// read-aloud rather than failing startup; the rest of the app works without it.
func buildSpeech(entry config.ProviderEntry) (tts.Provider, error) {
	if entry.APIKey == "" {
		slog.Warn("speech.api_key not set, read-aloud disabled")
		return nil, nil
	}
	var opts []elevenlabs.Option
	if entry.Model != "" {
		opts = append(opts, elevenlabs.WithModel(entry.Model))
	}
	if entry.BaseURL != "" {
		opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
	}
	if entry.Timeout.Std() > 0 {
		opts = append(opts, elevenlabs.WithHTTPClient(&http.Client{Timeout: entry.Timeout.Std()}))
	}
	p, err := elevenlabs.New(entry.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("provider created", "kind", "speech", "model", entry.Model)
	return resilience.NewSpeech(p, resilience.CircuitBreakerConfig{Name: "speech"}), nil
}

// seedConversation creates the first conversation from the configured profile
// when the restored snapshot holds none. Existing snapshots win over config.
func seedConversation(store *chat.Store, profile *config.ProfileConfig) {
	if profile == nil || len(store.Conversations()) > 0 {
		return
	}
	conv := store.CreateConversation(profile.Name, "")
	p := store.Profile(conv.ID)
	if profile.Voice != "" {
		p.Voice = profile.Voice
	}
	if profile.Register != "" {
		p.Register = profile.Register
	}
	store.UpdateAIProfile(conv.ID, p)
	slog.Info("seeded conversation from profile", "name", profile.Name)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
