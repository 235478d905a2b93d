package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"event-chat-service/internal/auth"
	"event-chat-service/internal/chat"
	"event-chat-service/internal/config"
	"event-chat-service/internal/db"
	"event-chat-service/internal/handlers"
	"event-chat-service/internal/middleware"
	"event-chat-service/internal/observability"
	"event-chat-service/internal/rabbitmq"
	"event-chat-service/internal/repositories"
	"event-chat-service/internal/telemetry"
	"event-chat-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracer := observability.InitTracer(context.Background(), cfg.OTELEnabled, cfg.OTLPEndpoint)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, "event-chat-service", cfg.Environment)

	if wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(wsPublisher)
		defer wsPublisher.Close()
	}

	eventRepo := repositories.NewEventRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()
	gateway := chat.NewGateway(eventRepo, roomRepo, messageRepo, userRepo, hub)
	verifier := auth.NewTokenVerifier(cfg.JWTSecret)

	chatHandler := handlers.NewChatHandler(gateway, userRepo, audit)
	attendanceHandler := handlers.NewAttendanceHandler(eventRepo, audit)
	chatWS := ws.NewChatSocketHandler(hub, gateway, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("event-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/chat/events/:event_id/messages", authMiddleware, chatHandler.GetChatHistory)
	router.POST("/chat/events/:event_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.POST("/chat/events/:event_id/attendance", authMiddleware, attendanceHandler.Attend)
	router.DELETE("/chat/events/:event_id/attendance", authMiddleware, attendanceHandler.Unattend)

	router.GET("/ws/chat", chatWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
