package webhook

import (
	"net/http"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/ingest"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Config   *config.Config
	Ingestor *ingest.Ingestor
}

func NewHandler(cfg *config.Config, ingestor *ingest.Ingestor) *Handler {
	return &Handler{
		Config:   cfg,
		Ingestor: ingestor,
	}
}

// VerifyWebhook answers the Meta subscription handshake: echo the
// challenge when the mode is "subscribe" and the token matches.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			logger.Info("webhook verified")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// HandleMessage ingests one webhook batch. Anything past JSON decoding
// answers 200: the provider retries non-2xx responses, and a retry storm
// against a transient local fault helps nobody. Partial failures are
// tallied and logged instead.
func (h *Handler) HandleMessage(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Warn("malformed webhook payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	res := h.Ingestor.Ingest(&payload)
	if res.Failed > 0 {
		logger.Warn("webhook batch partially failed",
			zap.Int("messages", res.Messages),
			zap.Int("statuses", res.Statuses),
			zap.Int("failed", res.Failed))
	} else {
		logger.Debug("webhook batch ingested",
			zap.Int("messages", res.Messages),
			zap.Int("statuses", res.Statuses))
	}

	c.JSON(http.StatusOK, res)
}
