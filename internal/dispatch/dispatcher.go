package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"go.uber.org/zap"
)

// ErrSentNotPersisted marks the at-least-once boundary with the provider:
// the external send went through but the local mirror write failed. The
// send cannot be undone, so callers must surface this instead of treating
// it as either success or plain failure.
var ErrSentNotPersisted = errors.New("dispatch: message sent but not persisted")

// Sender is the slice of the Graph client the dispatcher needs.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendImage(ctx context.Context, to, link, caption string) (string, error)
	SendTemplate(ctx context.Context, to, name, languageCode string) (string, error)
}

// Result reports a dispatched message. Message is nil when the local
// mirror write failed (see ErrSentNotPersisted).
type Result struct {
	ProviderMessageID string
	Message           *models.Message
}

// Dispatcher sends outbound messages: external call first, local mirror
// second. Nothing is written locally unless the provider accepted the
// message.
type Dispatcher struct {
	sender Sender
	store  *chat.Store
}

func New(sender Sender, store *chat.Store) *Dispatcher {
	return &Dispatcher{sender: sender, store: store}
}

// Send delivers one outbound message of the given type ("text", "image" or
// "template"; empty means text). On upstream failure the error is the
// client's APIError and no local state changes.
func (d *Dispatcher) Send(ctx context.Context, to, content, msgType string) (*Result, error) {
	if msgType == "" {
		msgType = "text"
	}

	var (
		providerID string
		err        error
	)
	switch msgType {
	case "text":
		providerID, err = d.sender.SendText(ctx, to, content)
	case "image":
		providerID, err = d.sender.SendImage(ctx, to, content, "")
	case "template":
		providerID, err = d.sender.SendTemplate(ctx, to, content, "pt_BR")
	default:
		return nil, fmt.Errorf("dispatch: unsupported message type %q", msgType)
	}
	if err != nil {
		return nil, err
	}

	msg, perr := d.persist(to, content, msgType, providerID)
	if perr != nil {
		logger.Error("outbound message sent but mirror write failed",
			zap.String("to", to),
			zap.String("whatsapp_message_id", providerID),
			zap.Error(perr))
		return &Result{ProviderMessageID: providerID},
			fmt.Errorf("%w (id %s): %w", ErrSentNotPersisted, providerID, perr)
	}

	return &Result{ProviderMessageID: providerID, Message: msg}, nil
}

func (d *Dispatcher) persist(to, content, msgType, providerID string) (*models.Message, error) {
	contact, err := d.store.UpsertContact(to, "")
	if err != nil {
		return nil, err
	}
	conv, err := d.store.GetOrCreateActiveConversation(contact.ID)
	if err != nil {
		return nil, err
	}
	return d.store.AppendMessage(&models.Message{
		ConversationID:    conv.ID,
		WhatsAppMessageID: &providerID,
		Content:           content,
		MessageType:       msgType,
		IsFromContact:     false,
		Status:            models.StatusSent,
		Timestamp:         time.Now().UTC(),
	})
}
