// Command migrate creates or updates the users table for the postgres store driver.
package main

import (
	"context"
	"log/slog"

	"accounts/config"
	logs "accounts/internal/infra/log"
	"accounts/internal/infra/persistence/model"
	"accounts/internal/infra/persistence/postgres"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type migrateParams struct {
	fx.In
	fx.Lifecycle

	Shutdowner fx.Shutdowner
	DB         *gorm.DB
	Logger     *slog.Logger
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			postgres.New,
		),
		fx.Invoke(
			registerMigration,
		),
	).Run()
}

func registerMigration(params migrateParams) {
	params.Append(fx.Hook{
		// Runs after the postgres start hook has verified the connection.
		OnStart: func(ctx context.Context) error {
			if err := migrate(ctx, params.DB, params.Logger); err != nil {
				return err
			}

			return params.Shutdowner.Shutdown()
		},
	})
}

func migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	models := []schema.Tabler{
		&model.UserModel{},
	}

	for _, m := range models {
		if err := db.WithContext(ctx).AutoMigrate(m); err != nil {
			return errors.Wrapf(err, "failed to migrate table %s", m.TableName())
		}
		logger.Info("Migrated table", slog.String("table", m.TableName()))
	}

	return nil
}
