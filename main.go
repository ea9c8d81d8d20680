package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/adapter/paramstore"
	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/hub"
	"github.com/reddishJade/sports-exem/internal/memory"
	"github.com/reddishJade/sports-exem/internal/policy"
	"github.com/reddishJade/sports-exem/internal/repository"
	"github.com/reddishJade/sports-exem/internal/service"
	httptransport "github.com/reddishJade/sports-exem/internal/transport/http"
	"github.com/reddishJade/sports-exem/internal/transport/ws"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting aichat",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("ws_port", cfg.WSPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("mode", cfg.Mode),
	)

	if cfg.DeepSeek.APIKey == "" && cfg.DeepSeek.APIKeyParam != "" {
		resolveCredential(ctx, cfg, logger)
	}
	if !cfg.HasDeepSeekCredential() {
		logger.Warn("deepseek credential missing, turns fall back to the local backend")
	}

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	backends, err := llm.NewBackends(cfg)
	if err != nil {
		logger.Fatal("failed to initialize backends", zap.Error(err))
	}
	selector := llm.NewSelector(cfg, logger, backends...)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	svc := service.New(store, selector, memory.NewSummarizer(selector, logger), policyEngine, cfg, logger)

	h := hub.NewHub(logger)
	go h.Run(ctx)

	apiServer := httptransport.NewServer(svc, logger)
	wsServer := ws.NewEcho(ws.NewServer(cfg.WebSocket, h, svc, logger), logger)

	start(apiServer, cfg.HTTPPort, "api", logger)
	start(wsServer, cfg.WSPort, "websocket", logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown api server gracefully", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown websocket server gracefully", zap.Error(err))
	}

	logger.Info("stopped")
}

func start(e *echo.Echo, port int, name string, logger *zap.Logger) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("server listening", zap.String("server", name), zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.String("server", name), zap.Error(err))
		}
	}()
}

func resolveCredential(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	params, err := paramstore.NewFromEnvironment(ctx)
	if err != nil {
		logger.Warn("parameter store unavailable", zap.Error(err))
		return
	}
	if err := cfg.ResolveDeepSeekKey(ctx, params); err != nil {
		logger.Warn("failed to resolve deepseek credential", zap.String("param", cfg.DeepSeek.APIKeyParam), zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zcfg.Build()
}
