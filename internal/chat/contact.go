package chat

import (
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"

	"gorm.io/gorm/clause"
)

// UpsertContact creates the contact for phoneNumber or updates its name
// (last write wins) when one already exists. An empty name never clobbers a
// known one.
func (s *Store) UpsertContact(phoneNumber, name string) (*models.Contact, error) {
	contact := models.Contact{PhoneNumber: phoneNumber, Name: name}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoNothing: true,
	}
	if name != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}
	}

	if err := s.db.Clauses(onConflict).Create(&contact).Error; err != nil {
		return nil, persistErr("upsert contact", err)
	}

	// Re-read so the caller always sees the canonical row, conflict or not.
	var saved models.Contact
	if err := s.db.Where("phone_number = ?", phoneNumber).First(&saved).Error; err != nil {
		return nil, persistErr("load contact", err)
	}
	return &saved, nil
}
