package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"geobot/internal/bot"
	"geobot/internal/config"
	"geobot/internal/geoguesser"
	"geobot/internal/mapsapi"
	"geobot/internal/observability"
	"geobot/internal/server"
	"geobot/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("geobot stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Info().Str("store", cfg.LocationStore).Int("rounds", cfg.Rounds).Dur("guess_time", cfg.GuessTime).Msg("Starting geobot")

	// Maps platform
	maps := mapsapi.NewMapsApi(mapsapi.Options{
		Key:          cfg.MapsApiKey,
		Restrictions: cfg.MapsRestrictions(),
		Timeout:      cfg.MapsTimeout,
	})
	maps.SetObserver(observability.ObserveUpstream)

	// Location pool and images
	checks := map[string]server.Checker{}
	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := storage.NewImageDir(cfg.ImageCacheDir)
	if err != nil {
		return err
	}

	// Discord
	discord, err := bot.NewDiscordSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	// Game engine
	options := cfg.GameOptions()
	provider := geoguesser.NewProvider(maps, maps, store, images, cfg.MaxSampleAttempts)
	scorer := geoguesser.NewScorer(maps)
	notifier := bot.NewNotifier(discord, options.GuessTime)
	orchestrator := geoguesser.NewOrchestrator(ctx, geoguesser.NewRegistry(), provider, scorer, notifier, options)

	geobot := bot.NewBot(discord, discord, bot.NewParser(cfg.CommandPrefix), orchestrator, provider, store)
	checks["discord"] = geobot
	admin := server.New(cfg.AdminAddr, checks, orchestrator)

	// Run
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return geobot.Run(gctx)
	})

	g.Go(func() error {
		return orchestrator.Run(gctx)
	})

	g.Go(func() error {
		return admin.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down admin server")
		return admin.Shutdown(context.Background())
	})

	return g.Wait()
}

// The location store picked in the config, with its health check
func openStore(ctx context.Context, cfg *config.Config, checks map[string]server.Checker) (geoguesser.LocationStore, func(), error) {
	switch cfg.LocationStore {
	case config.STORE_REDIS:
		rdb, err := storage.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store := storage.NewRedisStore(rdb)
		checks["redis"] = store
		return store, func() { rdb.Close() }, nil
	case config.STORE_MEMORY:
		log.Warn().Msg("Locations are kept in memory and lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	default:
		db, err := storage.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		store := storage.NewSQLiteStore(db)
		checks["sqlite"] = store
		return store, func() { db.Close() }, nil
	}
}
