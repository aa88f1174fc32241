package webhook

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/database"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newPaymentRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{AsaasToken: "token-asaas"}
	handler := NewPaymentHandler(cfg, db, nil)

	r := gin.New()
	r.POST("/webhook/asaas", handler.HandlePayment)
	return r, db
}

func postPayment(router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/asaas", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("asaas-access-token", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	order := &models.Order{
		AsaasPaymentID: "pay_123",
		Status:         "pendente",
		Total:          149.90,
		OrganizationID: "org-1",
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestPaymentWebhookRejectsBadToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "invalido"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, db := newPaymentRouter(t)
			seedOrder(t, db)

			w := postPayment(router, tt.token, `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_123","value":149.90}}`)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var notifications int64
			require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
			assert.Zero(t, notifications)

			var order models.Order
			require.NoError(t, db.Where("asaas_payment_id = ?", "pay_123").First(&order).Error)
			assert.Equal(t, "pendente", order.Status)
		})
	}
}

func TestPaymentWebhookTokenIsTrimmed(t *testing.T) {
	router, db := newPaymentRouter(t)
	seedOrder(t, db)

	w := postPayment(router, "  token-asaas  ", `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_123","value":149.90}}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentConfirmedUpdatesOrderAndNotifies(t *testing.T) {
	router, db := newPaymentRouter(t)
	order := seedOrder(t, db)

	w := postPayment(router, "token-asaas", `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_123","value":149.90}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, "pago", got.Status)

	var notifications []models.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, fmt.Sprintf("#%d", order.ID))
	assert.Equal(t, fmt.Sprintf("/pedidos/%d", order.ID), notifications[0].LinkTo)
	assert.Equal(t, "org-1", notifications[0].OrganizationID)
}

func TestPaymentRedeliveryCreatesOneNotification(t *testing.T) {
	router, db := newPaymentRouter(t)
	seedOrder(t, db)

	body := `{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_123","value":149.90}}`
	for i := 0; i < 3; i++ {
		w := postPayment(router, "token-asaas", body)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)
}

func TestPaymentFailureDoesNotBurnDedupKey(t *testing.T) {
	router, db := newPaymentRouter(t)
	order := seedOrder(t, db)

	// Break the notification insert so the confirmation fails after the
	// dedup row would have been written.
	require.NoError(t, db.Exec("ALTER TABLE notifications RENAME TO notifications_bak").Error)

	body := `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_123","value":149.90}}`
	w := postPayment(router, "token-asaas", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":false}`, w.Body.String())

	// Everything rolled back together: the order is untouched and the
	// event is not marked processed.
	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, "pendente", got.Status)

	var events int64
	require.NoError(t, db.Model(&models.PaymentEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	// The redelivery after the fault clears must apply in full.
	require.NoError(t, db.Exec("ALTER TABLE notifications_bak RENAME TO notifications").Error)

	w = postPayment(router, "token-asaas", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":true}`, w.Body.String())

	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, "pago", got.Status)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)
}

func TestPaymentUnknownOrderRedeliveryHeals(t *testing.T) {
	router, db := newPaymentRouter(t)

	body := `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_late","value":50}}`
	w := postPayment(router, "token-asaas", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":false}`, w.Body.String())

	// The dedup row must not survive a confirmation that found no order,
	// or this redelivery would be skipped as a duplicate.
	order := &models.Order{AsaasPaymentID: "pay_late", Status: "pendente", Total: 50}
	require.NoError(t, db.Create(order).Error)

	w = postPayment(router, "token-asaas", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":true}`, w.Body.String())

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, "pago", got.Status)
}

func TestPaymentIgnoresOtherEvents(t *testing.T) {
	router, db := newPaymentRouter(t)
	seedOrder(t, db)

	w := postPayment(router, "token-asaas", `{"event":"PAYMENT_OVERDUE","payment":{"id":"pay_123","value":149.90}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ignored":true}`, w.Body.String())

	var order models.Order
	require.NoError(t, db.Where("asaas_payment_id = ?", "pay_123").First(&order).Error)
	assert.Equal(t, "pendente", order.Status)
}

func TestPaymentForUnknownOrderIsAcknowledged(t *testing.T) {
	router, db := newPaymentRouter(t)

	w := postPayment(router, "token-asaas", `{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_ghost","value":10}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	assert.Zero(t, notifications)
}

func TestPaymentMalformedBody(t *testing.T) {
	router, _ := newPaymentRouter(t)

	w := postPayment(router, "token-asaas", "{nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
