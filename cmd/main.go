package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/hiscores/internal/adapters/repository"
	service "github.com/okian/hiscores/internal/app"
	"github.com/okian/hiscores/internal/config"
	"github.com/okian/hiscores/internal/domain/generator"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/urfave/cli/v2"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	nanosecondsPerMillisecond = 1e6
	defaultSeedCount          = 100
)

func main() {
	if err := logger.Init(); err != nil {
		// Use stderr since the logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "command failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "hiscores",
		Usage: "simulated hiscores leaderboard with achievements",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file",
				EnvVars: []string{config.EnvConfigPath},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the HTTP API and run the scheduled jobs",
				Action: serveAction,
			},
			{
				Name:   "tick",
				Usage:  "run the XP update job once",
				Action: tickAction,
			},
			{
				Name:  "seed",
				Usage: "generate new players",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "players to generate (default seed_players or 100)"},
				},
				Action: seedAction,
			},
			{
				Name:   "prune",
				Usage:  "drop lower achievement family keys from stored players",
				Action: pruneAction,
			},
			{
				Name:   "snapshot",
				Usage:  "record a leaderboard history snapshot",
				Action: snapshotAction,
			},
		},
	}
}

// loadConfig layers the --config file, if any, under the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		if err := os.Setenv(config.EnvConfigPath, path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(c.Context)
	if err != nil {
		return nil, err
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(c.Context, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// openStore connects the configured key-value backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendRedis:
		return repository.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.BackendPostgres:
		return repository.DialPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: unknown store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}

// newService builds the service over the configured store.
func newService(ctx context.Context, cfg *config.Config) (*service.Service, *repository.PlayerRepository, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	log := logger.Get()
	repo := repository.NewPlayerRepository(store,
		repository.WithLogger(log.Named("repository").With(logger.String("backend", cfg.StoreBackend))),
		repository.WithBackendName(cfg.StoreBackend),
	)
	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithRepository(repo),
		service.WithGenerator(generator.New(cfg.GeneratorSeed)),
		service.WithBatchSize(cfg.UpdateBatchSize),
		service.WithBatchDelay(cfg.UpdateBatchDelay()),
		service.WithWorkerCount(cfg.UpdateWorkers),
		service.WithContextCacheTTL(cfg.ContextCacheTTL()),
		service.WithHistoryRetention(cfg.HistoryRetention()),
		service.WithOnTheRise(cfg.OnTheRiseThreshold, cfg.OnTheRiseLimit),
		service.WithLeaderboardLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		service.WithSeedPlayers(cfg.SeedPlayers),
	)
	return svc, repo, nil
}

// withService runs fn against a service that is closed afterwards.
func withService(c *cli.Context, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, repo, err := newService(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Get().Warn(c.Context, "failed to close store", logger.Error(err))
		}
	}()
	return fn(c.Context, svc)
}

func tickAction(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.Service) error {
		report, err := svc.RunUpdateJob(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "run %s: processed=%d failed=%d unlocked=%d saved=%d took=%s\n",
			report.RunID, report.Processed, report.Failed, report.Unlocked, report.Saved, report.Duration)
		return nil
	})
}

func seedAction(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.Service) error {
		n := c.Int("count")
		if n <= 0 {
			n = defaultSeedCount
		}
		created, err := svc.Seed(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "seeded %d players\n", created)
		return nil
	})
}

func pruneAction(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.Service) error {
		players, removed, err := svc.PruneAchievements(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "pruned %d keys from %d players\n", removed, players)
		return nil
	})
}

func snapshotAction(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.Service) error {
		snap, pruned, err := svc.RecordSnapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "snapshot %s: players=%d expired=%d\n", snap.ID, snap.TotalPlayers, pruned)
		return nil
	})
}

// isJobOverlap reports a tick skipped because the previous job still runs.
func isJobOverlap(err error) bool {
	return errors.Is(err, service.ErrJobRunning)
}
