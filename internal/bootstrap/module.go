package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"qcflow/internal/bootstrap/config"
	"qcflow/internal/bootstrap/database"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
	cacheinfra "qcflow/internal/infrastructure/cache"
	"qcflow/internal/infrastructure/events"
	"qcflow/internal/infrastructure/identity"
	"qcflow/internal/infrastructure/persistence/gormstore/repository"
	"qcflow/internal/infrastructure/persistence/gormstore/uow"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			repository.NewIssueRepository,
			fx.As(new(ports.IssueRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewDBCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideIdentity),
	fx.Provide(providePublisher),
	fx.Provide(provideWorkflowOptions),
	fx.Provide(provideWorkflowService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithComponent(p.Ctx, "bootstrap.fx")
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, errs.Wrap(err, "build logger")
	}
	return logger.With(slog.String("app", cfg.App.Name), slog.String("env", cfg.App.Env)), nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if !cfg.Database.AutoMigrate {
				return nil
			}
			return database.Migrate(logging.WithAttrs(startCtx, logging.Attrs(logCtx)...), db)
		},
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

// provideIdentity loads the roster file and fronts it with the shared cache.
// With identity.watch set the roster reloads on file changes.
func provideIdentity(lc fx.Lifecycle, ctx context.Context, cfg config.Config, cache ports.Cache) (ports.IdentityProvider, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	roster, err := identity.LoadRoster(logCtx, cfg.Identity.RosterFile)
	if err != nil {
		return nil, errs.Wrap(err, "load roster")
	}

	if cfg.Identity.Watch {
		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				return roster.Watch(logCtx)
			},
			OnStop: func(_ context.Context) error {
				return roster.Close()
			},
		})
	}

	if cfg.Identity.CacheTTL <= 0 {
		return roster, nil
	}
	return identity.NewCachedProvider(roster, cache, cfg.Identity.CacheTTL), nil
}

// providePublisher connects to NATS when events.nats_url is set and falls
// back to logging events otherwise.
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.LogPublisher{}, nil
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.fx")
	publisher, err := events.ConnectNATS(logCtx, cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, errs.Wrap(err, "connect event publisher")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

func provideWorkflowOptions(cfg config.Config) workflow.Options {
	return workflow.Options{
		OperationTimeout: cfg.Workflow.OperationTimeout,
		RequestTTL:       cfg.Workflow.RequestTTL,
		MaxCommentLength: cfg.Workflow.MaxCommentLength,
		CommentPageSize:  cfg.Workflow.CommentPageSize,
	}
}

func provideWorkflowService(
	repo ports.IssueRepository,
	unit ports.UnitOfWork,
	identityProvider ports.IdentityProvider,
	publisher ports.EventPublisher,
	opts workflow.Options,
) *workflow.Service {
	return workflow.NewService(repo, unit, identityProvider, publisher, opts)
}

func provideApp(cfg config.Config, db *gorm.DB, logger *slog.Logger, svc *workflow.Service) *App {
	return &App{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Workflow: svc,
	}
}
