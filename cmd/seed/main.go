// Command seed loads the permission catalog, the system roles and the bootstrap administrator.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Skotchmaster/school_backend/internal/app"
	"github.com/Skotchmaster/school_backend/internal/service"
	"github.com/Skotchmaster/school_backend/pkg/config"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.ServiceName+"-seed")
	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), log), time.Minute)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Error("store init error", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = stores.Close(context.Background()) }()

	seeder := &service.Seeder{
		Users:         stores.Users,
		Roles:         stores.Roles,
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		PasswordCost:  cfg.BcryptCost,
	}
	res, err := seeder.Run(ctx)
	if err != nil {
		log.Error("seed failed", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
	log.Info("seed complete",
		slog.Int("permissions", res.Permissions),
		slog.Int("roles", res.Roles),
		slog.Bool("admin_created", res.AdminCreated),
	)
}
