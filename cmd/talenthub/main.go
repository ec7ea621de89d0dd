package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatservice "talenthub/internal/app/services/chat"
	"talenthub/internal/app/uow"
	domainuser "talenthub/internal/domain/user"
	"talenthub/internal/infra/broker/kafka"
	"talenthub/internal/infra/config"
	mongodb "talenthub/internal/infra/db/mongo"
	ginserver "talenthub/internal/infra/http/gin"
	"talenthub/internal/infra/obs"
	"talenthub/internal/infra/security"
	"talenthub/internal/infra/storage/memory"
	"talenthub/internal/infra/storage/s3"
	"talenthub/internal/infra/users"
	"talenthub/internal/infra/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	factory, ready, directory, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	var events chatservice.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, nil)
		if err != nil {
			logger.Error("kafka init failed", "error", err, "brokers", cfg.KafkaBrokers)
			os.Exit(1)
		}
		defer producer.Close()
		events = producer
		logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka disabled, events will not be published")
	}

	service := chatservice.NewService(factory, directory, events, logger)
	gateway := ws.NewGateway(service, logger)
	verifier := security.NewTokenVerifier(cfg.JWTSecret)

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicBaseURL, logger)
		if err != nil {
			logger.Error("s3 init failed", "error", err)
			os.Exit(1)
		}
		uploader = client
		logger.Info("attachment storage ready", "bucket", cfg.S3Bucket)
	} else {
		logger.Info("attachment storage not configured")
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, ginserver.Handlers{
		Chat: ginserver.ChatHandler{
			Service: service,
			Gateway: gateway,
			Logger:  logger,
		},
		Attachments: ginserver.AttachmentHandler{
			Uploader: uploader,
			Logger:   logger,
		},
		WS: &ginserver.WSHandler{
			Gateway:         gateway,
			Verifier:        verifier,
			Logger:          logger,
			WriteTimeout:    cfg.WSWriteTimeout,
			SkipOriginCheck: cfg.WSSkipOriginCheck,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// buildStorage picks Mongo when configured, otherwise the in-memory store.
// The user directory talks to the user service when its URL is set and falls
// back to a fixture-backed in-memory directory for local runs.
func buildStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (uow.Factory, func() error, domainuser.Directory, error) {
	var directory domainuser.Directory
	if cfg.UserServiceURL != "" {
		client, err := users.NewClient(users.Config{BaseURL: cfg.UserServiceURL}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("user service client ready", "url", cfg.UserServiceURL)
		directory = client
	} else {
		fixtureDir := memory.NewUserDirectory()
		if err := loadUserFixtures(cfg.UserFixtures, fixtureDir, logger); err != nil {
			return nil, nil, nil, err
		}
		directory = fixtureDir
	}

	if cfg.MongoURI == "" {
		logger.Info("mongo not configured, using in-memory store")
		store := memory.NewStore()
		return memory.Factory{Store: store}, func() error { return nil }, directory, nil
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongodb.EnsureIndexes(ctx, client.DB); err != nil {
		return nil, nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("mongo connected", "db", cfg.MongoDB)
	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx)
	}
	return mongodb.Factory{DB: client.DB}, ready, directory, nil
}

type userFixture struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

func loadUserFixtures(path string, directory *memory.UserDirectory, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("user fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []userFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		directory.Add(domainuser.Profile{
			ID:          domainuser.ID(fx.ID),
			DisplayName: fx.DisplayName,
			Email:       fx.Email,
			Role:        domainuser.NormalizeRole(domainuser.Role(fx.Role)),
		})
	}
	logger.Info("user fixtures loaded", "count", len(fixtures), "path", path)
	return nil
}
