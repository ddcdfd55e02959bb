package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-research/internal/config"
	"github.com/zhouzirui/z-research/internal/handler"
	"github.com/zhouzirui/z-research/internal/handler/stream"
	"github.com/zhouzirui/z-research/internal/service/ai"
)

// NewSource picks the model-backed source when Ark credentials are present
// and the demo source otherwise.
func NewSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ai.Source {
	if !cfg.AI.Enabled() {
		logger.Info().Msg("Ark credentials not configured, serving the demo research source")
		return ai.NewDemoSource(cfg.Server.DemoDelay)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create chat model, falling back to demo source")
		return ai.NewDemoSource(cfg.Server.DemoDelay)
	}

	source, err := ai.NewLLMSource(ctx, chatModel, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build research chain, falling back to demo source")
		return ai.NewDemoSource(cfg.Server.DemoDelay)
	}

	logger.Info().Str("model", cfg.AI.Model).Msg("AI research source initialized")
	return source
}

// NewHandler builds the full HTTP handler for cfg.
func NewHandler(ctx context.Context, cfg *config.Config, logger zerolog.Logger) http.Handler {
	source := NewSource(ctx, cfg, logger)
	return handler.NewRouter(stream.New(source, cfg.Server.DemoDelay, logger))
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("z-research backend listening")
	return run(ctx, srv)
}

func run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
