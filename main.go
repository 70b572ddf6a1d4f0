package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"geofriends-service/internal/auth"
	"geofriends-service/internal/chat"
	"geofriends-service/internal/config"
	"geofriends-service/internal/db"
	"geofriends-service/internal/handlers"
	"geofriends-service/internal/logger"
	"geofriends-service/internal/mail"
	"geofriends-service/internal/middleware"
	"geofriends-service/internal/models"
	"geofriends-service/internal/observability"
	"geofriends-service/internal/presence"
	"geofriends-service/internal/rabbitmq"
	"geofriends-service/internal/repositories"
	"geofriends-service/internal/telemetry"
	"geofriends-service/internal/ws"
)

const serviceName = "geofriends-service"

// watcherSweepInterval paces the presence staleness sweep; freshness checks
// themselves always compare against the configured gpsInactiveTime.
const watcherSweepInterval = 15 * time.Second

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logger.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warnf("event publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	logger.Infof("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.geofriends", serviceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	stateRepo := repositories.NewStateRepo(database)
	settingsRepo := repositories.NewSettingsRepo(database)

	sessions := auth.NewSessions(cfg.JWTSecret)
	mailer := mail.NewMailer(mail.SMTPConfig{
		Host: cfg.EmailHost,
		Port: cfg.EmailPort,
		User: cfg.EmailUser,
		Pass: cfg.EmailPass,
		From: cfg.EmailFrom,
	})

	hub := ws.NewHub()
	windows := chat.NewWindows()
	go windows.Run(ctx)

	watcher := presence.NewWatcher()
	go watcher.Run(ctx, watcherSweepInterval, func() time.Duration {
		timings, err := settingsRepo.GetTimings(ctx)
		if err != nil {
			logger.Errorf("failed to load timings for presence sweep: %v", err)
			timings = models.DefaultTimings()
		}
		return time.Duration(timings.GPSInactiveTime) * time.Second
	})

	engine := chat.NewEngine(userRepo, chatRepo, messageRepo, stateRepo, settingsRepo, windows, hub)

	authHandler := handlers.NewAuthHandler(userRepo, mailer, sessions, cfg.AdminEmail, cfg.AdminPassword)
	userHandler := handlers.NewUserHandler(userRepo, settingsRepo, watcher)
	chatHandler := handlers.NewChatHandler(engine)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)
	supportHandler := handlers.NewSupportHandler(userRepo, mailer)

	chatWS := ws.NewChatWebSocketHandler(hub, chatRepo, sessions)
	presenceWS := ws.NewPresenceWebSocketHandler(userRepo, settingsRepo, watcher, sessions)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(sessions)
	adminOnly := middleware.RequireAdmin()

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/setup-admin", authHandler.SetupAdmin)
	router.POST("/auth/verify", authHandler.Verify)
	router.POST("/auth/resend", authHandler.Resend)

	router.GET("/settings/branding", settingsHandler.Branding)

	authed := router.Group("/", authMiddleware)
	authed.GET("/users/me", userHandler.Me)
	authed.PUT("/users/me", userHandler.UpdateMe)
	authed.GET("/roster", userHandler.Roster)
	authed.POST("/support", supportHandler.Send)

	authed.GET("/chats/general", chatHandler.GeneralChat)
	authed.POST("/chats/private", chatHandler.StartPrivateChat)
	authed.GET("/chats/unread", chatHandler.Unread)
	authed.GET("/chats/:chat_id/messages", chatHandler.GetMessages)
	authed.POST("/chats/:chat_id/messages", chatHandler.PostMessage)
	authed.PUT("/chats/:chat_id/messages/:message_id", chatHandler.EditMessage)
	authed.DELETE("/chats/:chat_id/messages/:message_id", chatHandler.DeleteMessage)
	authed.POST("/chats/:chat_id/read", chatHandler.MarkRead)
	authed.POST("/chats/:chat_id/clear-request", chatHandler.RequestClear)

	admin := router.Group("/admin", authMiddleware, adminOnly)
	admin.GET("/users", userHandler.ListUsers)
	admin.PATCH("/users/:user_id/status", userHandler.UpdateStatus)
	admin.POST("/users/:user_id/chat-toggle", userHandler.ToggleChat)
	admin.DELETE("/users/:user_id", userHandler.DeleteUser)
	admin.GET("/chats/clear-requests", chatHandler.ClearRequests)
	admin.DELETE("/chats/:chat_id", chatHandler.PurgeChat)
	admin.GET("/settings/branding", settingsHandler.Branding)
	admin.PUT("/settings/branding", settingsHandler.UpdateBranding)
	admin.GET("/settings/timings", settingsHandler.Timings)
	admin.PUT("/settings/timings", settingsHandler.UpdateTimings)

	router.GET("/ws/chats/:chat_id", chatWS.Handle)
	router.GET("/ws/presence", presenceWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	logger.Infof("%s listening on :%s", serviceName, cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
