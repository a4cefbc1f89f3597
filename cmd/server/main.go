package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kerry-okpere/ai-video-conferencing/internal/config"
	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/server"
	"github.com/kerry-okpere/ai-video-conferencing/internal/signaling"
	"github.com/kerry-okpere/ai-video-conferencing/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := logging.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := signaling.NewHub(
		signaling.WithLogger(log),
		signaling.WithSettings(signaling.Settings{
			SendBuffer:     cfg.Signaling.SendBuffer,
			MaxMessageSize: cfg.Signaling.MaxMessageSize,
			WriteWait:      cfg.Signaling.WriteWait,
			PongWait:       cfg.Signaling.PongWait,
			PingPeriod:     cfg.Signaling.PingPeriod,
		}),
	)

	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	router := server.SetupRouter(hub, server.Options{AllowedOrigins: cfg.HTTP.AllowedOrigins}, log)
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting signaling server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("env", cfg.Env),
			slog.String("version", version.Version),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", logging.Err(err))
			stop()
			<-hubDone
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logging.Err(err))
	}

	stop()
	<-hubDone
	log.Info("signaling server stopped")
}
