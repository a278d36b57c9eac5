package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labflow/backend/internal/application/splitter"
	appwo "github.com/labflow/backend/internal/application/workorder"
	"github.com/labflow/backend/internal/domain/reference"
	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/infrastructure/cache"
	"github.com/labflow/backend/internal/infrastructure/config"
	"github.com/labflow/backend/internal/infrastructure/labclient"
	"github.com/labflow/backend/internal/infrastructure/logger"
	"github.com/labflow/backend/internal/infrastructure/persistence"
	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

// app is the assembled object graph one command runs against
type app struct {
	log      *zap.Logger
	service  *appwo.WorkOrderService
	splitter *splitter.Splitter
	closers  []func(context.Context) error
}

// Close releases everything in reverse acquisition order
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// builder produces an app for the given config file path
type builder func(ctx context.Context, configPath string) (*app, error)

// dependencies are the collaborators assemble wires together
type dependencies struct {
	db           *gorm.DB
	sets         remote.SetService
	materials    remote.MaterialService
	containers   remote.ContainerService
	study        remote.StudyService
	guard        shared.AdvisoryLock
	guardTTL     time.Duration
	splitMetrics *telemetry.SplitMetrics
	log          *zap.Logger
}

func assemble(d dependencies) *app {
	resolver := reference.NewResolver(d.sets, d.materials, d.containers, d.study)
	decorator := appwo.NewDecorator(resolver)

	workOrders := persistence.NewGormWorkOrderRepository(d.db)
	workPlans := persistence.NewGormWorkPlanRepository(d.db)
	jobs := persistence.NewGormJobRepository(d.db)
	runs := persistence.NewGormSplitRunRepository(d.db)

	opts := []splitter.Option{
		splitter.WithSplitRunRepository(runs),
		splitter.WithSplitMetrics(d.splitMetrics),
		splitter.WithLogger(d.log.Named("splitter")),
	}
	if d.guard != nil {
		opts = append(opts, splitter.WithGuard(d.guard, d.guardTTL))
	}

	return &app{
		log:     d.log,
		service: appwo.NewWorkOrderService(workOrders, workPlans, jobs, runs, decorator, d.log.Named("workorder")),
		splitter: splitter.New(
			persistence.NewGormTransactionScope(d.db),
			decorator,
			splitter.NewByContainer(d.containers),
			opts...,
		),
	}
}

// buildApp loads configuration and connects to the database, the telemetry
// collector and the remote services.
func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	a := &app{log: log}
	a.closers = append(a.closers, func(context.Context) error { return logger.Sync(log) })
	fail := func(err error) (*app, error) {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fail(fmt.Errorf("initialize telemetry: %w", err))
	}
	a.closers = append(a.closers, providers.Shutdown)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.Open(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return fail(fmt.Errorf("connect to database: %w", err))
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	if err := db.Instrument(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		IncludeVariables: cfg.Telemetry.DBLogFullSQL,
		DBSystem:         "postgresql",
	}, providers, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
		return fail(err)
	}

	meter := providers.Meter("labflow/splitter")
	remoteMetrics, err := telemetry.NewRemoteMetrics(meter)
	if err != nil {
		return fail(err)
	}
	splitMetrics, err := telemetry.NewSplitMetrics(meter)
	if err != nil {
		return fail(err)
	}

	clientOpts := []labclient.Option{
		labclient.WithRemoteMetrics(remoteMetrics),
		labclient.WithLogger(log.Named("labclient")),
	}
	sets, err := labclient.NewSetClient(serviceConfig(cfg.Services.Sets), clientOpts...)
	if err != nil {
		return fail(fmt.Errorf("set service: %w", err))
	}
	matcon, err := labclient.NewMatconClient(serviceConfig(cfg.Services.Materials), clientOpts...)
	if err != nil {
		return fail(fmt.Errorf("material service: %w", err))
	}
	study, err := labclient.NewStudyClient(serviceConfig(cfg.Services.Study), clientOpts...)
	if err != nil {
		return fail(fmt.Errorf("study service: %w", err))
	}

	var guard shared.AdvisoryLock
	if cfg.Split.GuardEnabled {
		factory := cache.NewAdvisoryLockFactory(cfg.Redis,
			cache.WithLogger(log.Named("guard")),
			cache.WithInMemoryFallback(!cfg.IsProduction()),
		)
		guard, err = factory.CreateLock(cfg.Split.GuardBackend)
		if err != nil {
			return fail(fmt.Errorf("split guard: %w", err))
		}
		a.closers = append(a.closers, func(context.Context) error { return guard.Close() })
	}

	assembled := assemble(dependencies{
		db:           db.DB,
		sets:         sets,
		materials:    matcon.Materials(),
		containers:   matcon.Containers(),
		study:        study,
		guard:        guard,
		guardTTL:     cfg.Split.GuardTTL,
		splitMetrics: splitMetrics,
		log:          log,
	})
	a.service = assembled.service
	a.splitter = assembled.splitter
	return a, nil
}

func serviceConfig(c config.ServiceConfig) labclient.ServiceConfig {
	return labclient.ServiceConfig{
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
		PageSize: c.PageSize,
	}
}
