package payment

import "errors"

var (
	ErrUnknownPackage     = errors.New("unknown credit package")
	ErrInvalidGrant       = errors.New("invalid checkout grant")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidEvent       = errors.New("invalid webhook event")
	ErrSessionNotPaid     = errors.New("checkout session is not paid")
	ErrSessionMismatch    = errors.New("checkout session belongs to another user")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrDuplicateSession   = errors.New("checkout session already applied")
	ErrPaymentsDisabled   = errors.New("payments are not configured")
	ErrTransactionMissing = errors.New("transaction not found")
)
