// Package cli is the facility command line: the HTTP server and one-shot
// commands for every reconciliation operation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"facility-backend/config"
	"facility-backend/jobs"
	"facility-backend/logger"
	"facility-backend/services"
	"facility-backend/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "facility-backend"

// App holds what the commands share. Dependencies are built on first use and
// kept for later commands run by the same App.
type App struct {
	version    string
	configFile string

	cfg      *config.Config
	log      *zap.Logger
	store    store.Store
	closers  []func() error
	registry *prometheus.Registry

	mappings  *services.MappingService
	staging   *services.StagingService
	engine    *services.ReconcileService
	inventory *services.InventoryService
	runner    *jobs.Runner
	history   *jobs.History
}

func New(version string) *App {
	return &App{version: version}
}

// Execute runs the command line with args and releases what it opened.
func (a *App) Execute(ctx context.Context, args []string) error {
	defer a.Close()
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "facility",
		Short:   "Reconcile the projector and turar room inventories",
		Version: a.version,
		Long: `facility keeps the design-stage (projector) and procurement-stage (turar)
room inventories in step: department mappings, staging copies for reporting,
room-level connections and their mirrored peer columns.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		a.serveCommand(),
		a.mappingsCommand(),
		a.materializeCommand(),
		a.linkCommand(),
		a.discoverCommand(),
		a.resetCommand(),
		a.verifyCommand(),
		a.jobsCommand(),
	)
	return root
}

func (a *App) setup(ctx context.Context) error {
	if a.runner != nil {
		return nil
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.closers = append(a.closers, func() error {
		_ = log.Sync()
		return nil
	})

	s, closeStore, err := config.OpenStore(cfg.DB, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)

	locker, err := a.locker(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}

	a.wire(cfg, log, s, locker)
	return nil
}

func (a *App) wire(cfg *config.Config, log *zap.Logger, s store.Store, locker jobs.Locker) {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.cfg, a.log, a.store = cfg, log, s
	a.mappings = services.NewMappingService(s, log)
	a.staging = services.NewStagingService(s, log)
	a.engine = services.NewReconcileService(s, log, services.EngineOptions{
		DiscoveryLimit:        cfg.Discover.Limit,
		DiscoveryBatchCeiling: cfg.Discover.BatchCeiling,
	})
	a.inventory = services.NewInventoryService(s)
	a.runner = jobs.NewRunner(a.mappings, a.staging, a.engine, locker, jobs.NewMetrics(a.registry), log, cfg.Jobs.LockTTL)
	a.history = jobs.NewHistory(s, log)
}

// locker uses redis when REDIS_ADDR is set so that several instances share
// one job lock.
func (a *App) locker(ctx context.Context, rc config.RedisConfig, log *zap.Logger) (jobs.Locker, error) {
	if rc.Addr == "" {
		log.Info("job lock is process-local")
		return jobs.NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
	}
	a.closers = append(a.closers, client.Close)
	log.Info("job lock is shared through redis", zap.String("addr", rc.Addr))
	return jobs.NewRedisLocker(client), nil
}

// Close releases everything setup opened, last opened first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	a.runner = nil
	return first
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
