// Command api runs the shop backend HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reshmacrochets/backend/internal/config"
	"github.com/reshmacrochets/backend/internal/httpapi"
	"github.com/reshmacrochets/backend/internal/lockout"
	"github.com/reshmacrochets/backend/internal/mail"
	"github.com/reshmacrochets/backend/internal/password"
	"github.com/reshmacrochets/backend/internal/repository"
	"github.com/reshmacrochets/backend/internal/service"
	"github.com/reshmacrochets/backend/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			log.Warn("mongo disconnect", zap.Error(err))
		}
	}()

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("connected to mongo", zap.String("db", cfg.Mongo.DBName))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	tokens, err := token.NewManager(token.Config{
		Secret:     []byte(cfg.JWT.Secret),
		SessionTTL: cfg.JWT.SessionTTL,
		Issuer:     cfg.JWT.Issuer,
	})
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	guard := lockout.New(rdb, lockout.Config{
		Threshold:     cfg.Lockout.Threshold,
		LockDuration:  cfg.Lockout.LockDuration,
		CounterWindow: cfg.Lockout.CounterWindow,
	})

	mailer := mail.NewClient(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	reviews := repository.NewReviewRepository(db)
	orders := repository.NewOrderRepository(db)

	authSvc := service.NewAuthService(users, hasher, tokens, guard, mailer, cfg.Frontend.BaseURL, log)
	ratingSvc := service.NewRatingService(reviews, products)
	reviewSvc := service.NewReviewService(reviews, products, ratingSvc, log)
	userSvc := service.NewUserService(users, orders)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpapi.NewServer(authSvc, userSvc, reviewSvc, httpapi.CookieConfig{
		MaxAge: int(cfg.JWT.CookieMaxAge.Seconds()),
		Secure: cfg.IsProduction(),
	}, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}
