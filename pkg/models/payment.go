package models

// AsaasWebhook is the payment-confirmation callback body from Asaas.
type AsaasWebhook struct {
	Event   string       `json:"event"`
	Payment AsaasPayment `json:"payment"`
}

type AsaasPayment struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}
