package chat

import (
	"errors"
	"time"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateActiveConversation returns the single active conversation for
// the contact, creating it when none exists. The partial unique index on
// conversations(contact_id) WHERE is_active makes concurrent creators
// converge on one row: the loser's insert is a no-op and the follow-up read
// picks up the winner's.
func (s *Store) GetOrCreateActiveConversation(contactID uint) (*models.Conversation, error) {
	conv, err := s.activeConversation(contactID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistErr("find active conversation", err)
	}

	fresh := models.Conversation{
		ContactID:     contactID,
		LastMessageAt: time.Now().UTC(),
		IsActive:      true,
	}
	onConflict := clause.OnConflict{
		Columns:     []clause.Column{{Name: "contact_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_active"}}},
		DoNothing:   true,
	}
	if err := s.db.Clauses(onConflict).Create(&fresh).Error; err != nil {
		return nil, persistErr("create conversation", err)
	}

	conv, err = s.activeConversation(contactID)
	if err != nil {
		return nil, persistErr("load active conversation", err)
	}
	return conv, nil
}

func (s *Store) activeConversation(contactID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("contact_id = ? AND is_active = ?", contactID, true).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// touchConversation advances last_message_at, but never backwards: the
// guard keeps redelivered or out-of-order webhook batches from rewinding
// the thread ordering the dashboard sorts by.
func (s *Store) touchConversation(conversationID uint, ts time.Time) error {
	err := s.db.Model(&models.Conversation{}).
		Where("id = ? AND last_message_at < ?", conversationID, ts).
		Update("last_message_at", ts).Error
	if err != nil {
		return persistErr("touch conversation", err)
	}
	return nil
}
