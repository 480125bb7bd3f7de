// Package persistence selects the user store backend from configuration.
package persistence

import (
	"context"
	"log/slog"

	"accounts/config"
	"accounts/internal/domain/lifecycle"
	"accounts/internal/domain/repository"
	"accounts/internal/infra/persistence/documentstore"
	"accounts/internal/infra/persistence/postgres"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params holds dependencies for the user repository, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewUserRepository opens the configured store and ties its shutdown to the app lifecycle.
func NewUserRepository(params Params) (repository.UserRepository, error) {
	store := params.Config.Store

	switch store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lc,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return nil, err
		}
		params.Logger.Info("Using PostgreSQL user store")

		return postgres.NewUserRepository(db), nil

	case config.StoreDriverDocstore, "":
		return newDocumentStoreRepository(params)

	default:
		return nil, errors.Errorf("unknown store driver: %s", store.Driver)
	}
}

func newDocumentStoreRepository(params Params) (repository.UserRepository, error) {
	openCtx, cancel := context.WithTimeout(params.Ctx, lifecycle.DefaultTimeout)
	defer cancel()

	coll, err := documentstore.Open(openCtx, params.Config.Store)
	if err != nil {
		return nil, err
	}
	params.Logger.Info("Using document user store", slog.String("url", params.Config.Store.URL))

	params.Lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			return coll.Ping(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			params.Logger.Info("Closing user collection")

			return coll.Close(stopCtx)
		},
	})

	return documentstore.NewUserRepository(coll.Collection), nil
}
