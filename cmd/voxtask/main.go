// Command voxtask is the demo shell around the Voxtask voice interaction
// engine: it loads the YAML config, builds the configured capability
// providers, runs the engine, and exposes a Prometheus /metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/voxtask/voxtask/internal/clock"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/engine"
	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/internal/store/postgres"
	"github.com/voxtask/voxtask/pkg/provider/notify"
	"github.com/voxtask/voxtask/pkg/provider/recognition"
	recmock "github.com/voxtask/voxtask/pkg/provider/recognition/mock"
	"github.com/voxtask/voxtask/pkg/provider/recognition/wsasr"
	"github.com/voxtask/voxtask/pkg/provider/synthesis"
	synthmock "github.com/voxtask/voxtask/pkg/provider/synthesis/mock"
	"github.com/voxtask/voxtask/pkg/provider/synthesis/openaitts"
	"github.com/voxtask/voxtask/pkg/types"
)

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
			fmt.Fprintf(os.Stderr, "voxtask: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxtask: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	slog.Info("voxtask starting",
		"config", *configPath,
		"log_level", cfg.Log.Level,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxtask"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metric instruments", "err", err)
		return 1
	}

	// ── Reminder store ────────────────────────────────────────────────────────
	repo, closeRepo, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open reminder store", "err", err)
		return 1
	}
	defer closeRepo()

	// ── Capability providers ──────────────────────────────────────────────────
	rec, err := buildRecognizer(cfg)
	if err != nil {
		slog.Error("failed to build recognition provider", "err", err)
		return 1
	}
	synth, err := buildSynthesizer(cfg)
	if err != nil {
		slog.Error("failed to build synthesis provider", "err", err)
		return 1
	}
	notifier := notify.NewConsole(os.Stdout)

	// ── Engine ────────────────────────────────────────────────────────────────
	engCfg := engine.DefaultConfig()
	applyWakeConfig(&engCfg, cfg.Wake)
	engCfg.Voice = cfg.Voice.Settings()
	if cfg.Reminders.DeliveryMode != "" {
		engCfg.ReminderMode = cfg.Reminders.DeliveryMode
	}

	eng := engine.New(rec, synth, notifier, repo, clock.System{}, engCfg, engine.WithMetrics(metrics))
	eng.OnTaskDraft(sinkTaskDraft)
	eng.OnListeningStateChange(func(s types.ListeningState) {
		slog.Info("listening state changed", "state", s)
	})

	printStartupSummary(cfg)

	if err := eng.Start(ctx); err != nil {
		slog.Error("failed to start engine", "err", err)
		return 1
	}
	defer eng.Stop()

	// ── Metrics endpoint ──────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.ListenAddr != "" {
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: metricsMux()}
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("engine ready — press Ctrl+C to shut down", "wake_phrase", engCfg.Input.WakePhrase)

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping…")

	if err := g.Wait(); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyWakeConfig overlays the non-zero wake settings from the config file
// onto the engine defaults.
func applyWakeConfig(engCfg *engine.Config, w config.WakeConfig) {
	if w.Phrase != "" {
		engCfg.Input.WakePhrase = w.Phrase
	}
	if w.Ack != "" {
		engCfg.Input.WakeAck = w.Ack
	}
	if w.Language != "" {
		engCfg.Input.Language = w.Language
	}
	if w.MaxRetries > 0 {
		engCfg.Input.MaxRetries = w.MaxRetries
	}
	if w.RestartDelay > 0 {
		engCfg.Input.RestartDelay = w.RestartDelay.Std()
	}
	if w.NoSpeechRetryDelay > 0 {
		engCfg.Input.NoSpeechRetryDelay = w.NoSpeechRetryDelay.Std()
	}
	if w.NetworkRetryDelay > 0 {
		engCfg.Input.NetworkRetryDelay = w.NetworkRetryDelay.Std()
	}
	if w.UnknownRetryDelay > 0 {
		engCfg.Input.UnknownRetryDelay = w.UnknownRetryDelay.Std()
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildStore opens the configured reminder repository and returns it together
// with a close function.
func buildStore(ctx context.Context, cfg *config.Config) (store.ReminderRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("reminder store ready", "backend", "postgres")
		return s, s.Close, nil
	case config.StorageFile:
		slog.Info("reminder store ready", "backend", "file", "path", cfg.Storage.Path)
		return store.NewFileStore(cfg.Storage.Path), func() {}, nil
	default:
		slog.Info("reminder store ready", "backend", "memory")
		return store.NewMemStore(), func() {}, nil
	}
}

// buildRecognizer constructs the configured recognition provider. The mock is
// the default so the demo shell runs without any external ASR service.
func buildRecognizer(cfg *config.Config) (recognition.Recognizer, error) {
	entry := cfg.Providers.Recognition
	switch entry.Name {
	case "wsasr":
		var opts []wsasr.Option
		if entry.Model != "" {
			opts = append(opts, wsasr.WithModel(entry.Model))
		}
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, wsasr.WithSampleRate(rate))
		}
		return wsasr.New(entry.BaseURL, entry.APIKey, audioSource(entry), opts...)
	case "mock", "":
		return &recmock.Recognizer{}, nil
	default:
		return nil, fmt.Errorf("unknown recognition provider %q", entry.Name)
	}
}

// audioSource returns the session audio opener for the wsasr provider: a PCM
// file named in the provider options, or stdin.
func audioSource(entry config.ProviderEntry) wsasr.AudioSource {
	if path := optString(entry.Options, "audio_path"); path != "" {
		return func(_ context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		}
	}
	return func(_ context.Context) (io.ReadCloser, error) {
		return io.NopCloser(os.Stdin), nil
	}
}

// buildSynthesizer constructs the configured synthesis provider. The console
// synthesizer is the default.
func buildSynthesizer(cfg *config.Config) (synthesis.Synthesizer, error) {
	entry := cfg.Providers.Synthesis
	switch entry.Name {
	case "openai":
		var opts []openaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaitts.WithBaseURL(entry.BaseURL))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, openaitts.WithVoice(voice))
		}
		return openaitts.New(entry.APIKey, entry.Model, pcmSink(entry), opts...)
	case "mock":
		return &synthmock.Synthesizer{}, nil
	case "console", "":
		return synthesis.NewConsole(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q", entry.Name)
	}
}

// pcmSink returns the playback sink for the openai synthesizer: the PCM file
// named in the provider options, or a drain that discards the audio.
func pcmSink(entry config.ProviderEntry) openaitts.Sink {
	if path := optString(entry.Options, "pcm_out"); path != "" {
		return func(_ context.Context, pcm io.Reader) error {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(f, pcm)
			return err
		}
	}
	return func(_ context.Context, pcm io.Reader) error {
		_, err := io.Copy(io.Discard, pcm)
		return err
	}
}

// ── Task draft sink ───────────────────────────────────────────────────────────

var taskSeq atomic.Int64

// sinkTaskDraft is the demo task store: it prints the draft and hands back a
// sequential task id.
func sinkTaskDraft(d types.TaskDraft) string {
	id := "task-" + strconv.FormatInt(taskSeq.Add(1), 10)
	due := "(none)"
	if !d.DueDate.IsZero() {
		due = d.DueDate.Format("2006-01-02")
	}
	fmt.Printf("📋 %s: %q priority=%s category=%q due=%s\n", id, d.Title, d.Priority, d.Category, due)
	return id
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	recName := cfg.Providers.Recognition.Name
	if recName == "" {
		recName = "mock"
	}
	synthName := cfg.Providers.Synthesis.Name
	if synthName == "" {
		synthName = "console"
	}
	backend := cfg.Storage.Backend
	if backend == "" {
		backend = config.StorageMemory
	}
	slog.Info("voxtask configured",
		"recognition", recName,
		"synthesis", synthName,
		"storage", backend,
		"metrics", cfg.Metrics.ListenAddr,
	)
}

// ── Metrics endpoint ──────────────────────────────────────────────────────────

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
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

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an int value from a provider Options map.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	n, _ := opts[key].(int)
	return n
}
