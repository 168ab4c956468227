// Package server assembles the application: database, domain services,
// HTTP router, and background jobs.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guardsync/internal/auth"
	"guardsync/internal/domain/attendance"
	"guardsync/internal/domain/facecheck"
	"guardsync/internal/domain/guards"
	"guardsync/internal/domain/org"
	"guardsync/internal/domain/payroll"
	"guardsync/internal/domain/presence"
	"guardsync/internal/domain/sites"
	"guardsync/internal/domain/stats"
	"guardsync/internal/domain/sysconfig"
	"guardsync/internal/platform/config"
	"guardsync/internal/platform/crypto"
	"guardsync/internal/platform/db"
	"guardsync/internal/platform/email"
	"guardsync/internal/platform/jobs"
	attendancehandler "guardsync/internal/transport/http/handlers/attendance"
	authhandler "guardsync/internal/transport/http/handlers/auth"
	confighandler "guardsync/internal/transport/http/handlers/config"
	facecheckshandler "guardsync/internal/transport/http/handlers/facechecks"
	guardshandler "guardsync/internal/transport/http/handlers/guards"
	locationshandler "guardsync/internal/transport/http/handlers/locations"
	payrollhandler "guardsync/internal/transport/http/handlers/payroll"
	siteshandler "guardsync/internal/transport/http/handlers/sites"
	statshandler "guardsync/internal/transport/http/handlers/stats"
	"guardsync/internal/transport/http/middleware"
)

// App holds the wired application. Tests construct one against a test
// database and drive App.Router directly.
type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service
}

// New connects, migrates, seeds, and wires every service and route.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	enc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	mailer := email.New(cfg)

	orgStore := org.NewStore(pool)
	guardStore := guards.NewStore(pool, enc)
	siteStore := sites.NewStore(pool)
	settingsStore := sysconfig.NewStore(pool)
	presenceStore := presence.NewStore(pool)
	attendanceStore := attendance.NewStore(pool)
	checkStore := facecheck.NewStore(pool)
	payrollStore := payroll.NewStore(pool)

	checkService := facecheck.NewService(checkStore, guardStore, siteStore, settingsStore)
	guardService := guards.NewService(guardStore, orgStore, mailer)
	attendanceService := attendance.NewService(attendanceStore, guardStore, checkService)
	statsService := stats.NewService(guardStore, presenceStore, settingsStore, checkService)
	payrollService := payroll.NewService(payrollStore, guardStore, attendanceStore,
		func(ctx context.Context, orgID string) (string, error) {
			o, err := orgStore.GetByID(ctx, orgID)
			if err != nil {
				return "", err
			}
			return o.Name, nil
		})

	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(orgStore, guardStore, cfg.JWTSecret)
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/guard-login", authHandler.HandleGuardLogin)
		r.Post("/auth/validate-code", authHandler.HandleValidateCode)
		r.Get("/auth/me", authHandler.HandleMe)
		r.Get("/org/me", authHandler.HandleOrg)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Post("/staff", authHandler.HandleCreateStaff)
			r.Get("/staff", authHandler.HandleListStaff)
		})

		guardshandler.NewHandler(guardService, guardStore).RegisterRoutes(r)
		siteshandler.NewHandler(siteStore).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceService).RegisterRoutes(r)
		locationshandler.NewHandler(presenceStore, guardStore, settingsStore).RegisterRoutes(r)
		facecheckshandler.NewHandler(checkService).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollService).RegisterRoutes(r)
		statshandler.NewHandler(statsService).RegisterRoutes(r)
		confighandler.NewHandler(settingsStore).RegisterRoutes(r)
	})

	background := jobs.New(cfg, checkService, orgStore, settingsStore, presenceStore, checkStore)

	return &App{
		Config: cfg,
		DB:     pool,
		Router: router,
		Jobs:   background,
	}, nil
}

// Run boots the application and blocks until SIGINT or SIGTERM.
func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.DB.Close()

	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("guardsync listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
