package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"doubt-server/internal/config"
	"doubt-server/internal/logging"
	"doubt-server/internal/registry"
	"doubt-server/internal/session"
	"doubt-server/internal/ws"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	reg, err := registry.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("registry init failed")
	}
	defer reg.Close()
	if err := reg.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	coord := session.NewCoordinator(reg, session.Config{
		Capacity:     cfg.Server.RoomCapacity,
		DoubtTimeout: cfg.Server.DoubtTimeout,
		TurnTimeout:  cfg.Server.TurnTimeout,
	})
	gateway := ws.NewServer(coord, reg, cfg.Server.RoomCapacity)

	r := newRouter(reg, gateway)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
