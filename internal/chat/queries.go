package chat

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
)

// ListConversations returns all conversations, most recently active first,
// with their contact loaded for the dashboard sidebar.
func (s *Store) ListConversations() ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.Preload("Contact").
		Order("last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, persistErr("list conversations", err)
	}
	return conversations, nil
}

// Conversation returns one conversation by id.
func (s *Store) Conversation(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Preload("Contact").First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("load conversation", err)
	}
	return &conv, nil
}

// ListContacts returns every known contact, newest first.
func (s *Store) ListContacts() ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, persistErr("list contacts", err)
	}
	return contacts, nil
}
