package payment

// CheckoutRequest is the body of POST /payments/checkout.
type CheckoutRequest struct {
	Item string `json:"item" validate:"required,max=64"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	SessionID string  `json:"session_id"`
	URL       string  `json:"url"`
	Package   Package `json:"package"`
}

// ConfirmRequest is the body of POST /payments/confirm.
type ConfirmRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// WebhookResult is returned to Stripe; it is informational only.
type WebhookResult struct {
	EventID string       `json:"event_id"`
	Type    string       `json:"type"`
	Handled bool         `json:"handled"`
	Result  *ApplyResult `json:"result,omitempty"`
}
