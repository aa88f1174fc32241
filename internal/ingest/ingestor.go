package ingest

import (
	"strconv"
	"time"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"
	wire "github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/models"

	"go.uber.org/zap"
)

// Notifier receives chat events as they are persisted, for the dashboard
// feed. A nil Notifier disables it.
type Notifier interface {
	NotifyMessage(msg models.Message)
	NotifyStatus(waMessageID, status string)
}

// Result tallies one webhook batch. Items fail independently: a bad item
// never aborts its siblings.
type Result struct {
	Messages int `json:"messages"`
	Statuses int `json:"statuses"`
	Failed   int `json:"failed"`
}

// Ingestor feeds webhook batches into the contact store, conversation
// resolver, message ledger and status reconciler.
type Ingestor struct {
	store    *chat.Store
	notifier Notifier
}

func New(store *chat.Store, notifier Notifier) *Ingestor {
	return &Ingestor{store: store, notifier: notifier}
}

// Ingest walks every entry and change in the payload. Later items may rely
// on conversations created by earlier ones, so items run in payload order.
func (i *Ingestor) Ingest(payload *wire.WebhookPayload) Result {
	var res Result
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			i.ingestValue(&change.Value, &res)
		}
	}
	return res
}

func (i *Ingestor) ingestValue(value *wire.ChangeValue, res *Result) {
	// Profile names ride in a sibling array keyed by wa_id.
	names := make(map[string]string, len(value.Contacts))
	for _, c := range value.Contacts {
		names[c.WaID] = c.Profile.Name
	}

	for idx := range value.Messages {
		msg := &value.Messages[idx]
		if err := i.ingestMessage(msg, names[msg.From]); err != nil {
			res.Failed++
			logger.Error("inbound message not ingested",
				zap.String("whatsapp_message_id", msg.ID),
				zap.String("from", msg.From),
				zap.Error(err))
			continue
		}
		res.Messages++
	}

	for _, status := range value.Statuses {
		if err := i.store.ApplyStatus(status.ID, status.Status, eventTime(status.Timestamp)); err != nil {
			res.Failed++
			logger.Error("status event not applied",
				zap.String("whatsapp_message_id", status.ID),
				zap.String("status", status.Status),
				zap.Error(err))
			continue
		}
		res.Statuses++
		if i.notifier != nil {
			i.notifier.NotifyStatus(status.ID, status.Status)
		}
	}
}

func (i *Ingestor) ingestMessage(msg *wire.WebhookMessage, profileName string) error {
	contact, err := i.store.UpsertContact(msg.From, profileName)
	if err != nil {
		return err
	}
	conv, err := i.store.GetOrCreateActiveConversation(contact.ID)
	if err != nil {
		return err
	}

	waID := msg.ID
	stored, err := i.store.AppendMessage(&models.Message{
		ConversationID:    conv.ID,
		WhatsAppMessageID: &waID,
		Content:           messageContent(msg),
		MessageType:       msg.Type,
		IsFromContact:     true,
		Status:            models.StatusReceived,
		Timestamp:         eventTime(msg.Timestamp),
	})
	if err != nil {
		return err
	}

	if i.notifier != nil {
		i.notifier.NotifyMessage(*stored)
	}
	return nil
}

// messageContent flattens the typed payload into the ledger's content
// column, media ids included so the dashboard can fetch them later.
func messageContent(msg *wire.WebhookMessage) string {
	switch msg.Type {
	case "text":
		return msg.Text.Body
	case "image":
		if msg.Image != nil {
			content := "[image]:" + msg.Image.ID
			if msg.Image.Caption != "" {
				content += ":" + msg.Image.Caption
			}
			return content
		}
	case "video":
		if msg.Video != nil {
			content := "[video]:" + msg.Video.ID
			if msg.Video.Caption != "" {
				content += ":" + msg.Video.Caption
			}
			return content
		}
	case "audio":
		if msg.Audio != nil {
			return "[audio]:" + msg.Audio.ID
		}
	case "document":
		if msg.Document != nil {
			content := "[document]:" + msg.Document.ID
			if msg.Document.Filename != "" {
				content += ":" + msg.Document.Filename
			}
			return content
		}
	case "interactive":
		if msg.Interactive != nil {
			if msg.Interactive.ButtonReply != nil {
				return msg.Interactive.ButtonReply.Title
			}
			if msg.Interactive.ListReply != nil {
				return msg.Interactive.ListReply.Title
			}
		}
	}
	return "[" + msg.Type + "]"
}

// eventTime parses the provider's unix-seconds timestamp string, falling
// back to now when it is absent or malformed.
func eventTime(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
