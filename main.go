package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"campus-chat/internal/authz"
	"campus-chat/internal/chat"
	"campus-chat/internal/config"
	"campus-chat/internal/db"
	"campus-chat/internal/handlers"
	"campus-chat/internal/identity"
	"campus-chat/internal/middleware"
	"campus-chat/internal/observability"
	"campus-chat/internal/rabbitmq"
	"campus-chat/internal/repositories"
	"campus-chat/internal/storage"
	"campus-chat/internal/telemetry"
	"campus-chat/internal/ws"
)

const serviceName = "campus-chat"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.campus_chat", serviceName, cfg.Environment)

	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	enrollmentRepo := repositories.NewEnrollmentRepo(database)
	accountRepo := repositories.NewAccountRepo(database)

	if _, err := accountRepo.EnsureWellKnownLecturer(ctx); err != nil {
		log.Fatalf("failed to provision well-known lecturer: %v", err)
	}

	blobStore := storage.NewS3BlobStore(storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})

	resolver := authz.NewResolver(groupRepo, enrollmentRepo)
	stream := chat.NewMessageStream(messageRepo)
	registry := chat.NewGroupRegistry(groupRepo, messageRepo, blobStore, stream)
	bridge := chat.NewAttachmentBridge(blobStore, stream)

	verifier := identity.NewVerifier(cfg.JWTSecret)

	groupHandler := handlers.NewGroupHandler(resolver, registry, stream, bridge, audit)
	sessionWS := ws.NewSessionWebSocketHandler(verifier, resolver, stream, bridge, audit)

	router := gin.Default()
	router.Use(observability.HTTPMetricsMiddleware())
	if cfg.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware(serviceName))
	}

	identityMiddleware := middleware.IdentityMiddleware(verifier)

	router.GET("/groups", identityMiddleware, groupHandler.ListGroups)
	router.POST("/groups", identityMiddleware, groupHandler.CreateGroup)
	router.DELETE("/groups/:group_id", identityMiddleware, groupHandler.DeleteGroup)
	router.GET("/groups/:group_id/messages", identityMiddleware, groupHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", identityMiddleware, groupHandler.PostGroupMessage)
	router.POST("/groups/:group_id/attachments", identityMiddleware, groupHandler.UploadAttachment)

	router.GET("/ws/session", sessionWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		if err := blobStore.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "blob_store": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
