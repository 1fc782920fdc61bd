package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/email"
	apihttp "taskboard/internal/http"
	"taskboard/internal/repository"
	"taskboard/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	projectRepo := repository.NewPgProjectRepository(pool)
	taskRepo := repository.NewPgTaskRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		resetLimiter service.ResetRateLimiter
		revoked      service.RevocationStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			resetLimiter = service.NewRedisResetRateLimiter(redisClient, 15*time.Minute, cfg.ResetMaxPerWindow)
			revoked = service.NewRedisRevocationStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTLHours)*time.Hour,
		revoked,
	)

	authSvc := service.NewAuthService(logger, userRepo, projectRepo, taskRepo, emailSender, resetLimiter)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, jwtSvc)
	projectHandler := apihttp.NewProjectHandler(logger, projectRepo, userRepo)
	taskHandler := apihttp.NewTaskHandler(logger, taskRepo, projectRepo, userRepo)
	router := apihttp.NewRouter(logger, authHandler, projectHandler, taskHandler, jwtSvc, userRepo, apihttp.RouterOptions{
		LoginRatePerMin:    cfg.LoginRatePerMin,
		RegisterRatePerMin: cfg.RegisterRatePerMin,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
