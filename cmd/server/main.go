package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/config"
	"foodDelivery/internal/db"
	grpcserver "foodDelivery/internal/grpc"
	"foodDelivery/internal/httpapi"
	"foodDelivery/internal/jobs"
	"foodDelivery/internal/logging"
	"foodDelivery/internal/orders"
	"foodDelivery/repository"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepSchedule   = "@every 10m"
	limiterIdle     = 10 * time.Minute
)

func main() {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logrus.Infof("configuration loaded: %v", cfg)

	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("open db")
	}
	defer func() {
		if err := d.Close(); err != nil {
			logrus.WithError(err).Warn("close db")
		}
	}()

	orderRepo := repository.NewOrderRepository(d)
	driverRepo := repository.NewDriverRepository(d)
	adminRepo := repository.NewAdminRepository(d)
	offerRepo := repository.NewOfferRepository(d)

	if err := seedAdmin(adminRepo, cfg.Auth); err != nil {
		logrus.WithError(err).Fatal("seed admin")
	}

	store, sweepStore := sessionStore(cfg.Redis)
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, store)
	svc := orders.NewService(orderRepo, driverRepo, offerRepo)
	limiter := httpapi.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	if err := limiter.TrustProxies(cfg.HTTP.TrustedProxies); err != nil {
		logrus.WithError(err).Fatal("trusted proxies")
	}

	sched := jobs.NewScheduler()
	if err := sched.AddOfferExpiry(cfg.Jobs.OfferExpirySchedule, offerRepo); err != nil {
		logrus.WithError(err).Fatal("schedule offer expiry")
	}
	if err := sched.AddSweep(jobs.JobLimiterSweep, sweepSchedule, limiterIdle, limiter); err != nil {
		logrus.WithError(err).Fatal("schedule limiter sweep")
	}
	if sweepStore != nil {
		if err := sched.AddSweep(jobs.JobSessionSweep, sweepSchedule, 0, sweepStore); err != nil {
			logrus.WithError(err).Fatal("schedule session sweep")
		}
	}
	sched.Start()

	stopGRPC, err := grpcserver.StartGRPC(cfg.GRPC.Address, grpcserver.NewServer(sessions, svc, adminRepo))
	if err != nil {
		logrus.WithError(err).Fatal("start grpc")
	}

	srv := httpapi.SetupRoutes(httpapi.Deps{
		Orders:      svc,
		Catalog:     repository.NewCatalogRepository(d),
		Offers:      offerRepo,
		Settings:    repository.NewSettingsRepository(d),
		Drivers:     driverRepo,
		Admins:      adminRepo,
		Sessions:    sessions,
		Limiter:     limiter,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	go func() {
		logrus.WithField("addr", cfg.HTTP.Address).Info("http listening")
		if err := srv.Run(cfg.HTTP.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("http server")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	if err := stopGRPC(ctx); err != nil {
		logrus.WithError(err).Warn("grpc shutdown")
	}
	sched.Stop(ctx)
}

// seedAdmin creates the first admin account when the table is empty.
func seedAdmin(admins *repository.AdminRepository, cfg config.AuthConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := admins.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	if cfg.AdminPassword == "" {
		logrus.Warn("no admin account exists and ADMIN_PASSWORD is not set")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if _, err := admins.Create(ctx, cfg.AdminUsername, hash, "Administrator"); err != nil {
		return err
	}
	logrus.WithField("username", cfg.AdminUsername).Info("seeded admin account")
	return nil
}

// sessionStore picks Redis when configured, otherwise an in-process store which
// also needs periodic sweeping.
func sessionStore(cfg config.RedisConfig) (auth.SessionStore, jobs.Sweeper) {
	if cfg.Addr == "" {
		mem := auth.NewMemoryStore()
		return mem, jobs.SweepFunc(func(time.Duration) int { return mem.Sweep() })
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr).Fatal("connect redis")
	}
	logrus.WithField("addr", cfg.Addr).Info("sessions stored in redis")
	return auth.NewRedisStore(client), nil
}
