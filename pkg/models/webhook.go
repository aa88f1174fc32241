package models

// WebhookPayload represents the incoming JSON payload from WhatsApp
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value ChangeValue `json:"value"`
	Field string      `json:"field"`
}

type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []WebhookContact `json:"contacts,omitempty"`
	Messages []WebhookMessage `json:"messages,omitempty"`
	Statuses []WebhookStatus  `json:"statuses,omitempty"`
}

// WebhookContact carries the sender's profile as the provider knows it.
type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // unix seconds, as a string
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image       *MediaMessage       `json:"image,omitempty"`
	Video       *MediaMessage       `json:"video,omitempty"`
	Audio       *MediaMessage       `json:"audio,omitempty"`
	Document    *MediaMessage       `json:"document,omitempty"`
	Interactive *InteractiveMessage `json:"interactive,omitempty"`
}

// WebhookStatus is an asynchronous delivery-state event for a previously
// sent message.
type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
	Errors      []struct {
		Code  int    `json:"code"`
		Title string `json:"title"`
	} `json:"errors,omitempty"`
}

// MediaMessage represents a media attachment in a WhatsApp message
type MediaMessage struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// InteractiveMessage represents an interactive message response (buttons, lists)
type InteractiveMessage struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

// ButtonReply represents a button click response
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListReply represents a list selection response
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
