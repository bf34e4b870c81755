// Package daemonrun wires together the full daemon runtime: logging, stores,
// providers, stage handlers, and signal handling. It is shared by clipforged
// and the `clipforge daemon run` command.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipforge/internal/catalog"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/discovery"
	"clipforge/internal/editplan"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/metagen"
	"clipforge/internal/notifications"
	"clipforge/internal/objectstore"
	"clipforge/internal/providers"
	"clipforge/internal/queue"
	"clipforge/internal/scoring"
	"clipforge/internal/transcribe"
	"clipforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the clipforge daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("clipforge-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       opts.LogLevel,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update clipforge.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.LogDir, "clipforge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	catalogStore, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer catalogStore.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := registerStages(signalCtx, manager, cfg, store, catalogStore, logger); err != nil {
		return err
	}

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down")
	return nil
}

func registerStages(ctx context.Context, mgr *workflow.Manager, cfg *config.Config, store *queue.Store, catalogStore *catalog.Store, logger *slog.Logger) error {
	model, err := providers.NewLanguageModel(cfg, logger)
	if err != nil {
		return fmt.Errorf("language model provider: %w", err)
	}
	transcriber, err := providers.NewTranscriber(cfg)
	if err != nil {
		return fmt.Errorf("transcriber provider: %w", err)
	}
	objects, err := objectstore.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	mediaSvc := media.NewService(cfg.Media)
	searcher := discovery.NewFetcherSearcher(cfg.Media)
	mgr.SetDiscovery(discovery.NewService(cfg, store, catalogStore, model, searcher, logger))

	mgr.ConfigureStages(workflow.StageSet{
		Crawler:     discovery.NewCrawler(cfg, mediaSvc, logger),
		Transcriber: transcribe.NewHandler(mediaSvc, transcriber, logger),
		Analyzer:    editplan.NewAnalyzer(model, logger),
		Editor:      editplan.NewEditor(cfg, model, mediaSvc, objects, logger),
		Scorer:      scoring.NewHandler(cfg, metagen.NewGenerator(model, logger), logger),
		Publisher:   catalog.NewPublisher(cfg, catalogStore, logger),
	})
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "clipforge.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("dependency snapshot",
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_provider", cfg.Providers.LLM),
		logging.String("stt_provider", cfg.Providers.STT),
		logging.Bool("fetcher_available", binaryAvailable(cfg.Media.FetcherBinary)),
		logging.String("fetcher_binary", cfg.Media.FetcherBinary),
		logging.Bool("ffmpeg_available", binaryAvailable(cfg.Media.FFmpegBinary)),
		logging.String("ffmpeg_binary", cfg.Media.FFmpegBinary),
		logging.String("storage_backend", cfg.Storage.Backend),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
