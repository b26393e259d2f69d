package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "github.com/peerdrop/roulette/internal/adapter/driving/http"
	"github.com/peerdrop/roulette/internal/config"
	"github.com/peerdrop/roulette/internal/core/service"
	"github.com/peerdrop/roulette/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("loading config: " + err.Error() + "\n")
		os.Exit(1)
	}
	l := logging.Setup(cfg)

	matchmaker := service.NewMatchmaker()
	go matchmaker.Run()

	h := handler.NewHandler(matchmaker)
	r := h.NewRouter()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	matchmaker.Stop()
	l.Info().Msg("Server exited")
}
