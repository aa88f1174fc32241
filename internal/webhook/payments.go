package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"
	wire "github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationNotifier pushes freshly created notifications to the
// dashboard feed.
type NotificationNotifier interface {
	NotifyNotification(n models.Notification)
}

// PaymentHandler receives payment-confirmation callbacks from Asaas.
type PaymentHandler struct {
	Config   *config.Config
	DB       *gorm.DB
	Notifier NotificationNotifier
}

func NewPaymentHandler(cfg *config.Config, db *gorm.DB, notifier NotificationNotifier) *PaymentHandler {
	return &PaymentHandler{Config: cfg, DB: db, Notifier: notifier}
}

var errUnknownOrder = errors.New("webhook: payment for unknown order")

// HandlePayment authenticates the asaas-access-token header, then marks
// the matching order paid and raises a notification. Only token mismatch
// (401) and undecodable JSON (400) answer non-200; once authenticated,
// internal failures are logged and acknowledged so Asaas does not retry
// into the same fault.
func (h *PaymentHandler) HandlePayment(c *gin.Context) {
	token := strings.TrimSpace(c.GetHeader("asaas-access-token"))
	if h.Config.AsaasToken == "" || token != strings.TrimSpace(h.Config.AsaasToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
		return
	}

	var payload wire.AsaasWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Event != "PAYMENT_CONFIRMED" && payload.Event != "PAYMENT_RECEIVED" {
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}

	// Asaas redelivers events; the unique provider_event key makes a
	// redelivered confirmation a no-op. Recording the event, flipping the
	// order and raising the notification commit together: if anything
	// fails the dedup row rolls back too, so the next redelivery can
	// apply the confirmation instead of being answered as a duplicate.
	var (
		duplicate    bool
		notification models.Notification
	)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		event := models.PaymentEvent{ProviderEvent: payload.Event + ":" + payload.Payment.ID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_event"}},
			DoNothing: true,
		}).Create(&event)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			duplicate = true
			return nil
		}

		var order models.Order
		err := tx.Where("asaas_payment_id = ?", payload.Payment.ID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errUnknownOrder
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&order).Update("status", "pago").Error; err != nil {
			return err
		}

		notification = models.Notification{
			Message:        fmt.Sprintf("Pagamento confirmado para o pedido #%d", order.ID),
			LinkTo:         fmt.Sprintf("/pedidos/%d", order.ID),
			OrganizationID: order.OrganizationID,
		}
		return tx.Create(&notification).Error
	})

	if errors.Is(err, errUnknownOrder) {
		logger.Warn("payment for unknown order",
			zap.String("payment_id", payload.Payment.ID),
			zap.String("event", payload.Event))
		c.JSON(http.StatusOK, gin.H{"processed": false})
		return
	}
	if err != nil {
		logger.Error("payment confirmation not applied",
			zap.String("payment_id", payload.Payment.ID),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"processed": false})
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"processed": true, "duplicate": true})
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyNotification(notification)
	}

	logger.Info("payment confirmed",
		zap.String("payment_id", payload.Payment.ID),
		zap.String("event", payload.Event))
	c.JSON(http.StatusOK, gin.H{"processed": true})
}
