package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Skotchmaster/school_backend/internal/app"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/es"
	"github.com/Skotchmaster/school_backend/internal/handlers"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/middleware/csrf"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/mykafka"
	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/service"
	httpserver "github.com/Skotchmaster/school_backend/internal/transport/http"
	"github.com/Skotchmaster/school_backend/pkg/config"
	"github.com/Skotchmaster/school_backend/pkg/logging"
	"github.com/Skotchmaster/school_backend/pkg/middleware/metrics"
	"github.com/Skotchmaster/school_backend/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.ServiceName)
	slog.SetDefault(log)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	ctx := logging.IntoContext(context.Background(), log)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	stores, err := app.OpenStores(initCtx, cfg)
	cancel()
	if err != nil {
		log.Error("store init error", slog.Any("error", err))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		mailer notify.Mailer = notify.LogMailer{}
		sinks  []audit.Sink
		prod   *mykafka.Producer
		search = &handlers.SearchHandler{}
	)

	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka init error", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = notify.NewKafkaMailer(prod, cfg.NotificationTopic)
		sinks = append(sinks, audit.KafkaSink{Pub: prod, Topic: cfg.AuditTopic})
	} else {
		log.Warn("KAFKA_BROKERS not set, e-mails will only be logged")
	}

	if cfg.ESURL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := es.NewClient(esCtx, cfg)
		cancel()
		if err != nil {
			log.Error("audit index unavailable, continuing without it", slog.Any("error", err))
		} else {
			store := audit.NewESStore(client, cfg.AuditIndex)
			sinks = append(sinks, store)
			search.Store = store
		}
	}

	recorder := audit.NewRecorder(reg, sinks...)
	recorder.Start(audit.DefaultQueueSize)

	tok := tokens.NewService(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.ServiceName,
	})

	authSvc := service.NewAuthService(stores.Users, stores.Roles, tok, mailer, recorder)
	authSvc.PasswordCost = cfg.BcryptCost
	userSvc := service.NewUserService(stores.Users, stores.Roles, mailer, recorder)
	userSvc.PasswordCost = cfg.BcryptCost

	limiter := ratelimit.New(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)
	done := make(chan struct{})
	go limiter.Run(done)

	deps := &httpserver.Deps{
		Auth: &handlers.AuthHandler{Svc: authSvc, Cookies: handlers.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  tok.AccessTTL(),
			RefreshTTL: tok.RefreshTTL(),
		}},
		Users:         &handlers.UserHandler{Svc: userSvc},
		Roles:         &handlers.RoleHandler{Svc: service.NewRoleService(stores.Roles)},
		Search:        search,
		Authenticator: auth.NewAuthenticator(tok, stores.Users),
		Guard:         auth.Guard{Audit: recorder},
		Limiter:       limiter,
		Metrics:       metrics.NewHTTP(reg),
		Gatherer:      reg,
		Ready:         stores.Ping,
	}
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		c.SkipPaths = []string{
			"/api/v1/auth/login",
			"/api/v1/auth/forgot-password",
			"/api/v1/auth/verify-reset-otp",
			"/api/v1/auth/reset-password",
		}
		deps.CSRF = &c
	}

	e := httpserver.New(log, cfg.IsProduction(), handlers.NewValidator(models.IsKnownRole), cfg.CORSOrigins)
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	httpserver.Register(e, deps)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	go func() {
		log.Info("http server listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("echo start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("echo shutdown", slog.Any("error", err))
	}
	close(done)
	recorder.Close()

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Error("kafka close", slog.Any("error", err))
		}
	}
	if err := stores.Close(shutdownCtx); err != nil {
		log.Error("store close", slog.Any("error", err))
	}
	log.Info("shutdown complete")
}
