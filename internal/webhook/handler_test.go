package webhook

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/database"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/ingest"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{VerifyToken: "segredo"}
	handler := NewHandler(cfg, ingest.New(chat.New(db), nil))

	r := gin.New()
	r.GET("/webhook", handler.VerifyWebhook)
	r.POST("/webhook", handler.HandleMessage)
	return r, db
}

func TestVerifyWebhook(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid token echoes challenge",
			query:          "hub.mode=subscribe&hub.verify_token=segredo&hub.challenge=42abc",
			expectedStatus: http.StatusOK,
			expectedBody:   "42abc",
		},
		{
			name:           "wrong token is forbidden",
			query:          "hub.mode=subscribe&hub.verify_token=errado&hub.challenge=42abc",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "wrong mode is forbidden",
			query:          "hub.mode=unsubscribe&hub.verify_token=segredo&hub.challenge=42abc",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing params is a bad request",
			query:          "hub.challenge=42abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestHandleMessagePersistsBatch(t *testing.T) {
	router, db := newTestRouter(t)

	body := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "WABA_ID",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": "5511988887777", "profile": {"name": "João"}}],
					"messages": [{
						"from": "5511988887777",
						"id": "wamid.HOOK1",
						"timestamp": "1767225600",
						"type": "text",
						"text": {"body": "bom dia"}
					}]
				}
			}]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":1,"statuses":0,"failed":0}`, w.Body.String())

	var msg models.Message
	require.NoError(t, db.Where("whatsapp_message_id = ?", "wamid.HOOK1").First(&msg).Error)
	assert.Equal(t, "bom dia", msg.Content)
}

func TestHandleMessageMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessageAcknowledgesPartialFailure(t *testing.T) {
	router, db := newTestRouter(t)

	// Break conversation resolution so the message item fails internally.
	require.NoError(t, db.Exec("DROP TABLE conversations").Error)

	body := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "WABA_ID",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [{
						"from": "5511988887777",
						"id": "wamid.HOOK2",
						"timestamp": "1767225600",
						"type": "text",
						"text": {"body": "oi"}
					}]
				}
			}]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Still 200: internal faults must not trigger provider retry storms.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":0,"statuses":0,"failed":1}`, w.Body.String())
}
