package ports

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a webhook payload cannot be verified.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// BillingInterval selects the subscription price.
type BillingInterval string

const (
	Monthly BillingInterval = "monthly"
	Yearly  BillingInterval = "yearly"
)

// CheckoutParams describes a hosted subscription checkout.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	ProfileID  string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the hosted page the creator is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Webhook event types handled by the billing service.
const EventCheckoutCompleted = "checkout.session.completed"

// WebhookEvent is a verified payment provider event.
type WebhookEvent struct {
	ID         string
	Type       string
	ProfileID  string
	CustomerID string
	SessionID  string
}

// Payments is the hosted checkout provider.
type Payments interface {
	CreateCustomer(ctx context.Context, email, profileID string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error)
	// ParseWebhook verifies signature against payload and decodes the event.
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// WebhookProcessor applies one verified event.
type WebhookProcessor interface {
	Process(ctx context.Context, ev WebhookEvent) error
}

// WebhookQueue hands verified events to background workers and waits for
// the outcome, so a failed event can be answered with a non-2xx status.
type WebhookQueue interface {
	Submit(ctx context.Context, ev WebhookEvent) error
}
