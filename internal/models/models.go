package models

import (
	"time"
)

// Message statuses as reported by the provider. Ordered: a status may only
// replace a lower-ranked one (see StatusRank).
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
	StatusReceived  = "received"
)

var statusRank = map[string]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
	StatusFailed:    4, // terminal
}

// StatusRank returns the ordering rank of a delivery status, or 0 for an
// unknown status string.
func StatusRank(status string) int {
	return statusRank[status]
}

var statusOrder = []string{StatusSent, StatusDelivered, StatusRead, StatusFailed}

// StatusesBelow returns every delivery status with a rank lower than the
// given one, in ascending order.
func StatusesBelow(rank int) []string {
	var below []string
	for _, status := range statusOrder {
		if statusRank[status] < rank {
			below = append(below, status)
		}
	}
	return below
}

// Contact represents a phone-number-identified chat counterpart.
type Contact struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber   string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"phone_number"`
	Name          string    `gorm:"type:varchar(255)" json:"name"`
	ProfilePicURL string    `gorm:"type:text" json:"profile_pic_url"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation is the message thread with one contact. The partial unique
// index guarantees at most one active conversation per contact.
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ContactID     uint      `gorm:"not null;index;uniqueIndex:ux_conversations_active_contact,where:is_active" json:"contact_id"`
	Contact       *Contact  `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	LastMessageAt time.Time `gorm:"not null" json:"last_message_at"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is one communication unit in a conversation. WhatsAppMessageID is
// assigned by the provider and acts as the idempotency key for webhook
// redelivery; it is nil for rows the provider never identified.
type Message struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ConversationID    uint      `gorm:"not null;index" json:"conversation_id"`
	WhatsAppMessageID *string   `gorm:"column:whatsapp_message_id;type:varchar(255);uniqueIndex" json:"whatsapp_message_id"`
	Content           string    `gorm:"type:text" json:"content"`
	MessageType       string    `gorm:"type:varchar(50)" json:"message_type"`
	IsFromContact     bool      `gorm:"not null" json:"is_from_contact"`
	Status            string    `gorm:"type:varchar(20);not null" json:"status"`
	Timestamp         time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Order is a sales order awaiting payment confirmation from Asaas.
type Order struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AsaasPaymentID string    `gorm:"type:varchar(255);uniqueIndex" json:"asaas_payment_id"`
	Status         string    `gorm:"type:varchar(50);not null;default:'pendente'" json:"status"`
	Total          float64   `json:"total"`
	OrganizationID string    `gorm:"type:varchar(255);index" json:"organization_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Notification feeds the dashboard bell.
type Notification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	LinkTo         string    `gorm:"type:varchar(255)" json:"link_to"`
	OrganizationID string    `gorm:"type:varchar(255);index" json:"organization_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// PaymentEvent records processed payment-webhook deliveries so provider
// retries do not double-apply.
type PaymentEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProviderEvent string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"provider_event"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
