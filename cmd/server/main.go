package main

import (
	"log"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/api"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/database"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/dispatch"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/ingest"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/webhook"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/whatsapp"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/ws"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	if err := logger.Init(cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := database.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Request ID Middleware
	r.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error("request finished with errors",
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.Strings("errors", c.Errors.Errors()))
		}
	})

	hub := ws.NewHub()
	go hub.Run()

	store := chat.New(database.DB)
	whatsappClient := whatsapp.NewClient(cfg)
	dispatcher := dispatch.New(whatsappClient, store)
	ingestor := ingest.New(store, hub)

	webhookHandler := webhook.NewHandler(cfg, ingestor)
	paymentHandler := webhook.NewPaymentHandler(cfg, database.DB, hub)
	dashboardHandler := api.NewDashboardHandler(store, dispatcher, hub)
	contactHandler := api.NewContactHandler(store)
	notificationHandler := api.NewNotificationHandler(database.DB)
	mediaHandler := api.NewMediaHandler(whatsappClient)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)
	r.POST("/webhook/asaas", paymentHandler.HandlePayment)

	// Dashboard Feed
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/conversations", dashboardHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", dashboardHandler.GetMessages)
		apiGroup.POST("/send", dashboardHandler.SendMessage)

		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)

		apiGroup.GET("/notifications", notificationHandler.GetNotifications)
		apiGroup.POST("/notifications/:id/read", notificationHandler.MarkRead)

		apiGroup.POST("/media", mediaHandler.UploadMedia)
		apiGroup.GET("/media/:id", mediaHandler.RetrieveMediaURL)
		apiGroup.DELETE("/media/:id", mediaHandler.DeleteMedia)
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
