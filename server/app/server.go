package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"studyhub/server/api"
	"studyhub/server/common/auth"
	"studyhub/server/common/infra/cache"
	"studyhub/server/common/infra/db"
	"studyhub/server/common/infra/mq"
	"studyhub/server/common/infra/object"
	"studyhub/server/repository"
	"studyhub/server/service"
)

type Server struct {
	HTTPServer  *http.Server
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	MQConn      *amqp.Connection
	MQPublisher *service.AMQPPublisher
	Hub         *service.Hub
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}

	redisClient := cache.NewClient(cfg.RedisAddr)
	if err := cache.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	var (
		mqConn    *amqp.Connection
		publisher *service.AMQPPublisher
	)
	if cfg.UseMQ {
		mqConn, err = mq.NewConnection(cfg.RabbitURL)
		if err != nil {
			return nil, fmt.Errorf("initialize rabbitmq: %w", err)
		}
		publisher, err = service.NewAMQPPublisher(mqConn)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	hub := service.NewHub()
	hub.UseRedis(redisClient)
	if err := hub.StartRedisSubscriber(context.Background()); err != nil {
		return nil, fmt.Errorf("start hub subscriber: %w", err)
	}

	aiClient := service.NewAIClient(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, publisher)
	userSvc := service.NewUserService(userRepo)
	projectSvc := service.NewProjectService(projectRepo)
	noteSvc := service.NewNoteService(noteRepo, projectRepo, aiClient, notificationSvc)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, userRepo, aiClient)
	quizSvc := service.NewQuizService(quizRepo, noteSvc, aiClient, userRepo, analyticsSvc)
	chatSvc := service.NewChatService(chatRepo, projectRepo, userRepo, aiClient, notificationSvc, hub)
	realtimeSvc := service.NewRealtimeService(hub, chatSvc, projectRepo)

	var fileSvc *service.FileService
	if cfg.MinioEndpoint != "" {
		minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		fileSvc = service.NewFileService(minioClient, cfg.MinioBucket)
	}

	authSvc := auth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	h := api.NewHandler(authSvc, userSvc, projectSvc, noteSvc, quizSvc, chatSvc, analyticsSvc, notificationSvc, fileSvc, realtimeSvc)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer:  httpServer,
		Pool:        pool,
		Redis:       redisClient,
		MQConn:      mqConn,
		MQPublisher: publisher,
		Hub:         hub,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.Hub.StopRedisSubscriber()
	if s.MQPublisher != nil {
		s.MQPublisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
