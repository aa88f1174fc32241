package chat

import (
	"errors"
	"time"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApplyStatus records a delivery-status event for a previously stored
// message. Provider status events are not ordered across webhook requests,
// so a transition is only applied when it outranks the stored status
// (sent < delivered < read < failed); stale events are skipped. An event
// for a message id the ledger has never seen is dropped with a log, not an
// error: the message may simply not be persisted yet.
func (s *Store) ApplyStatus(waMessageID, status string, eventTime time.Time) error {
	rank := models.StatusRank(status)
	if rank == 0 {
		logger.Warn("unknown delivery status",
			zap.String("whatsapp_message_id", waMessageID),
			zap.String("status", status))
		return nil
	}

	var msg models.Message
	err := s.db.Where("whatsapp_message_id = ?", waMessageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("status event for unknown message",
			zap.String("whatsapp_message_id", waMessageID),
			zap.String("status", status))
		return nil
	}
	if err != nil {
		return persistErr("find message for status", err)
	}

	// Inbound messages are terminal on creation; delivery substates only
	// exist for messages we sent.
	if msg.IsFromContact {
		logger.Debug("status event for inbound message skipped",
			zap.String("whatsapp_message_id", waMessageID))
		return nil
	}

	if rank <= models.StatusRank(msg.Status) {
		logger.Debug("stale status event skipped",
			zap.String("whatsapp_message_id", waMessageID),
			zap.String("have", msg.Status),
			zap.String("got", status))
		return nil
	}

	// The rank check is repeated in the WHERE clause so a racing
	// reconciler can never downgrade the row, while a concurrent write of
	// any still-lower status does not make this event match nothing.
	err = s.db.Model(&models.Message{}).
		Where("id = ? AND status IN ?", msg.ID, models.StatusesBelow(rank)).
		Update("status", status).Error
	if err != nil {
		return persistErr("update message status", err)
	}
	return nil
}
