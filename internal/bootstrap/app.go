package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"qcflow/internal/bootstrap/config"
	"qcflow/internal/bootstrap/database"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
	"qcflow/internal/usecase/workflow"
)

type App struct {
	Config   config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Workflow *workflow.Service
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.app")
	logging.Info(logCtx, "start schema migration")

	if err := database.Migrate(logCtx, a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
