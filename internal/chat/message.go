package chat

import (
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// AppendMessage inserts a message into the ledger and advances the parent
// conversation's last_message_at. When the message carries a provider id
// that is already in the ledger the insert is skipped and the existing row
// returned, so webhook redelivery of the same event is a no-op.
func (s *Store) AppendMessage(msg *models.Message) (*models.Message, error) {
	if msg.WhatsAppMessageID != nil {
		res := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "whatsapp_message_id"}},
			DoNothing: true,
		}).Create(msg)
		if res.Error != nil {
			return nil, persistErr("append message", res.Error)
		}
		if res.RowsAffected == 0 {
			logger.Debug("duplicate message ignored",
				zap.Stringp("whatsapp_message_id", msg.WhatsAppMessageID))
			var existing models.Message
			err := s.db.Where("whatsapp_message_id = ?", *msg.WhatsAppMessageID).First(&existing).Error
			if err != nil {
				return nil, persistErr("load existing message", err)
			}
			return &existing, nil
		}
	} else {
		if err := s.db.Create(msg).Error; err != nil {
			return nil, persistErr("append message", err)
		}
	}

	if err := s.touchConversation(msg.ConversationID, msg.Timestamp); err != nil {
		return nil, err
	}
	return msg, nil
}

// MessagesByConversation returns the ledger for one conversation in event
// order.
func (s *Store) MessagesByConversation(conversationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, persistErr("list messages", err)
	}
	return messages, nil
}
