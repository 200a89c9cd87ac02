package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/talkweave/engine"
	"github.com/talkweave/engine/internal/archive"
	"github.com/talkweave/engine/internal/client"
	"github.com/talkweave/engine/internal/config"
	"github.com/talkweave/engine/internal/engine"
	"github.com/talkweave/engine/internal/server"
	"github.com/talkweave/engine/internal/store"
	"github.com/talkweave/engine/pkg/log"
)

type talkweave struct {
	cfg        *config.Config
	store      *store.Store
	archiver   *archive.Worker
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectStore      = errors.New("failed to connect to session store")
	ErrOpenArchiveBucket = errors.New("failed to open archive bucket")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &talkweave{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *talkweave) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	s.initializeEngine()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *talkweave) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Talkweave Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *talkweave) initializeStores() error {
	s.store = store.New(s.cfg.Store)
	if err := s.store.Ping(context.Background()); err != nil {
		_ = s.store.Close()
		return fmt.Errorf("%w: %w", ErrConnectStore, err)
	}

	if s.cfg.ArchiveBucketURL != "" {
		blobs, err := archive.NewBlobStore(
			context.Background(),
			s.cfg.ArchiveBucketURL,
			s.cfg.ArchivePrefix,
		)
		if err != nil {
			_ = s.store.Close()
			return fmt.Errorf("%w: %w", ErrOpenArchiveBucket, err)
		}
		s.archiver = archive.NewWorker(blobs, s.store, s.cfg.ArchiveInterval)
		s.archiver.Start()
	}
	return nil
}

func (s *talkweave) initializeEngine() {
	deps := engine.Dependencies{
		Store:  s.store,
		Caller: client.NewHTTPCaller(),
	}
	if s.cfg.AIAPIKey != "" {
		openAI := client.NewOpenAICompleter(
			s.cfg.AIAPIKey, s.cfg.AIBaseURL, s.cfg.AIModel,
		)
		completers := client.NewCompleterSet(openAI)
		completers.Register("openai", openAI)
		deps.Completer = completers
	}
	if s.archiver != nil {
		deps.Archiver = s.archiver
	}

	s.engine = engine.New(s.cfg, deps)
	s.engine.Start()
}

func (s *talkweave) startServer() {
	s.apiServer = server.NewServer(s.engine)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *talkweave) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if err := s.engine.Stop(); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}
	if s.archiver != nil {
		s.archiver.Stop()
	}
	_ = s.store.Close()

	slog.Info("Server exited")
}
