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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Lobby/internal/adapters/http"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/broadcast"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/cache"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	g, ctx := errgroup.WithContext(ctx)

	var mirror orch.Mirror
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("snapshot mirror")
		}
		defer client.Close()
		m := cache.NewSnapshotMirror(client, cfg.Redis.TTL)
		mirror = m
		g.Go(func() error { return m.Run(ctx) })
	}

	store := core.NewStore(core.WithCodeGenerator(core.RandomCodes(cfg.Lobby.CodeLength)))
	events := broadcast.New(app.PolicyByName(cfg.Broadcast.Policy), cfg.Broadcast.Buffer)
	o := orch.New(store, events, app.NewRegistry(), mirror, orch.Options{
		MinPlayers:    cfg.Lobby.MinPlayers,
		MaxPlayers:    cfg.Lobby.MaxPlayers,
		IdleTimeout:   cfg.Lobby.IdleTimeout,
		SweepInterval: cfg.Lobby.SweepInterval,
		JoinLimit:     cfg.JoinLimit.Count,
		JoinInterval:  cfg.JoinLimit.Interval,
	})

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Lobby server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return o.RunEvictor(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)
		events.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
