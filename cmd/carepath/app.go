package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/carepath"
	"github.com/aretw0/carepath/internal/config"
	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/adapters/graphfile"
	"github.com/aretw0/carepath/pkg/adapters/memory"
	redisstore "github.com/aretw0/carepath/pkg/adapters/redis"
	"github.com/aretw0/carepath/pkg/adapters/submission"
	"github.com/aretw0/carepath/pkg/autologin"
	"github.com/aretw0/carepath/pkg/crm"
	"github.com/aretw0/carepath/pkg/observability"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/aretw0/carepath/pkg/persistence/middleware"
	"github.com/aretw0/carepath/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics

	storage ports.Storage
	tokens  ports.TokenStore
	locker  ports.DistributedLocker

	engine    *carepath.Engine
	crm       *crm.Client
	autologin *autologin.Service

	closers []func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewWithFormat(os.Stderr, level, format), nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(a.registry, logger)

	if err := a.openStorage(cmd.Context()); err != nil {
		return nil, err
	}

	if err := a.buildEngine(); err != nil {
		a.Close()
		return nil, err
	}

	a.crm = a.buildCRM()
	a.autologin = autologin.NewService(a.tokens,
		autologin.WithTTL(cfg.AutoLoginTTL),
		autologin.WithLogger(logger),
	)
	return a, nil
}

// openStorage selects redis or memory and applies encryption at rest.
func (a *app) openStorage(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Redis.Addr == "" {
		a.logger.Warn("no redis address configured, flows and tokens are kept in memory")
		a.storage = memory.NewStore()
		a.tokens = memory.NewTokenStore()
	} else {
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.WithPrefix(cfg.Redis.Prefix))
		if ctx == nil {
			ctx = context.Background()
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return fmt.Errorf("redis %s unreachable: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, store.Close)
		a.storage = store
		a.tokens = redisstore.NewTokenStore(store.Client(), cfg.Redis.Prefix)
		a.locker = redisstore.NewLocker(store.Client(), cfg.Redis.Prefix)
		a.logger.Info("using redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	}

	if cfg.EncryptionKey == "" {
		return nil
	}
	keys, err := cfg.Keys()
	if err != nil {
		return err
	}
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    keys[0],
		FallbackKeys: keys[1:],
	})
	if err != nil {
		return err
	}
	a.storage = middleware.Chain(a.storage, encrypt)
	return nil
}

func (a *app) buildEngine() error {
	cfg := a.cfg

	var submitter ports.Submitter = submission.NewLogSubmitter(a.logger)
	if cfg.SubmissionURL != "" {
		submitter = submission.NewHTTPSubmitter(cfg.SubmissionURL, submission.WithLogger(a.logger))
	}

	opts := []carepath.Option{
		carepath.WithStorage(a.storage),
		carepath.WithTTL(cfg.TTL),
		carepath.WithScope(cfg.ScopeFunc()),
		carepath.WithSubmitter(submitter),
		carepath.WithLifecycleHooks(a.metrics.Hooks()),
		carepath.WithLogger(a.logger),
		carepath.WithEntryStep(cfg.EntryStep),
	}
	if a.locker != nil {
		opts = append(opts, carepath.WithLocker(a.locker))
	}
	if cfg.GraphFile != "" {
		opts = append(opts, carepath.WithLoader(graphfile.New(cfg.GraphFile)))
	}

	eng, err := carepath.New(opts...)
	if err != nil {
		return err
	}
	a.engine = eng
	return nil
}

func (a *app) buildCRM() *crm.Client {
	gatewayOpts := []crm.GatewayOption{
		crm.WithHTTPClient(&http.Client{Timeout: a.cfg.CRMTimeout}),
		crm.WithLogger(a.logger),
		crm.WithAttemptHook(a.metrics.CRMAttempt),
	}
	if len(a.cfg.CRMEndpoints) > 0 {
		gatewayOpts = append(gatewayOpts, crm.WithEndpoints(a.cfg.CRMEndpoints...))
	}
	return crm.NewClient(a.cfg.CRM,
		crm.WithGateway(crm.NewGateway(gatewayOpts...)),
		crm.WithClientLogger(a.logger),
	)
}

// repository reads flows the way the engine stores them.
func (a *app) repository() *persistence.Repository {
	return persistence.NewRepository(a.storage,
		persistence.WithTTL(a.cfg.TTL),
		persistence.WithScope(a.cfg.ScopeFunc()),
		persistence.WithLogger(a.logger),
	)
}

// Close releases the backends in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
