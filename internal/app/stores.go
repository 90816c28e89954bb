// Package app opens the process-wide dependencies shared by the server and the seed command.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/repo/mongostore"
	"github.com/Skotchmaster/school_backend/pkg/config"
	"github.com/Skotchmaster/school_backend/pkg/db"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

type Stores struct {
	Users repo.UserStore
	Roles repo.RoleStore

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// OpenStores connects the credential store selected by STORE_DRIVER.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	log := logging.FromContext(ctx)

	switch cfg.StoreDriver {
	case config.StoreMongo:
		ms, err := mongostore.New(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		log.Info("credential store ready", slog.String("driver", config.StoreMongo))
		return &Stores{Users: ms.Users(), Roles: ms.Roles(), Ping: ms.Ping, Close: ms.Close}, nil

	case config.StorePostgres:
		gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx, gdb); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("credential store ready", slog.String("driver", config.StorePostgres), slog.String("sql_driver", cfg.DBDriver))
		return &Stores{
			Users: repo.NewGormRepo(gdb),
			Roles: repo.NewGormRoleRepo(gdb),
			Ping:  func(ctx context.Context) error { return db.Ping(ctx, gdb) },
			Close: func(context.Context) error {
				sqlDB, err := gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
