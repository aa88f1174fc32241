package dispatch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/database"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/whatsapp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendText(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

func (m *MockSender) SendImage(ctx context.Context, to, link, caption string) (string, error) {
	args := m.Called(ctx, to, link, caption)
	return args.String(0), args.Error(1)
}

func (m *MockSender) SendTemplate(ctx context.Context, to, name, languageCode string) (string, error) {
	args := m.Called(ctx, to, name, languageCode)
	return args.String(0), args.Error(1)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSendPersistsAfterProviderAccepts(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	sender.On("SendText", mock.Anything, "5511988887777", "ola").
		Return("wamid.OUT1", nil)

	d := New(sender, chat.New(db))

	result, err := d.Send(context.Background(), "5511988887777", "ola", "")
	require.NoError(t, err)
	assert.Equal(t, "wamid.OUT1", result.ProviderMessageID)
	require.NotNil(t, result.Message)
	assert.False(t, result.Message.IsFromContact)
	assert.Equal(t, models.StatusSent, result.Message.Status)

	var msg models.Message
	require.NoError(t, db.Where("whatsapp_message_id = ?", "wamid.OUT1").First(&msg).Error)
	assert.Equal(t, "ola", msg.Content)

	var contact models.Contact
	require.NoError(t, db.Where("phone_number = ?", "5511988887777").First(&contact).Error)

	sender.AssertExpectations(t)
}

func TestSendUpstreamFailureWritesNothing(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	sender.On("SendText", mock.Anything, "5511988887777", "ola").
		Return("", &whatsapp.APIError{StatusCode: 400, Body: `{"error":"invalid number"}`})

	d := New(sender, chat.New(db))

	result, err := d.Send(context.Background(), "5511988887777", "ola", "text")
	assert.Nil(t, result)

	var apiErr *whatsapp.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	var contacts, messages int64
	require.NoError(t, db.Model(&models.Contact{}).Count(&contacts).Error)
	require.NoError(t, db.Model(&models.Message{}).Count(&messages).Error)
	assert.Zero(t, contacts)
	assert.Zero(t, messages)
}

func TestSendReportsSentButNotPersisted(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	sender.On("SendText", mock.Anything, "5511988887777", "ola").
		Return("wamid.OUT2", nil)

	// Break the ledger after the external call path is set up: the send
	// succeeds upstream but the mirror write must fail.
	require.NoError(t, db.Exec("DROP TABLE messages").Error)

	d := New(sender, chat.New(db))

	result, err := d.Send(context.Background(), "5511988887777", "ola", "")
	require.ErrorIs(t, err, ErrSentNotPersisted)
	require.NotNil(t, result)
	assert.Equal(t, "wamid.OUT2", result.ProviderMessageID)
	assert.Nil(t, result.Message)

	var perr *chat.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestSendUnsupportedType(t *testing.T) {
	db := newTestDB(t)
	d := New(new(MockSender), chat.New(db))

	result, err := d.Send(context.Background(), "5511988887777", "ola", "sticker")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestSendTemplateUsesDefaultLanguage(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	sender.On("SendTemplate", mock.Anything, "5511988887777", "boas_vindas", "pt_BR").
		Return("wamid.OUT3", nil)

	d := New(sender, chat.New(db))

	result, err := d.Send(context.Background(), "5511988887777", "boas_vindas", "template")
	require.NoError(t, err)
	assert.Equal(t, "wamid.OUT3", result.ProviderMessageID)
	sender.AssertExpectations(t)
}
