package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/easyref/easyref-api/internal/core/ports"
)

// metadataProfileKey carries the profile id through checkout into the webhook.
const metadataProfileKey = "userId"

var _ ports.Payments = (*Stripe)(nil)

type customerCreator interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Config holds the provider credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
}

// Stripe implements ports.Payments with hosted subscription checkout.
type Stripe struct {
	customers     customerCreator
	sessions      sessionCreator
	webhookSecret string
	log           zerolog.Logger
}

func NewStripe(cfg Config, log zerolog.Logger) *Stripe {
	sc := client.New(cfg.SecretKey, nil)
	return &Stripe{
		customers:     sc.Customers,
		sessions:      sc.CheckoutSessions,
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (s *Stripe) CreateCustomer(ctx context.Context, email, profileID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(metadataProfileKey, profileID)

	c, err := s.customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	s.log.Info().Str("profile_id", profileID).Str("customer_id", c.ID).Msg("payment customer created")
	return c.ID, nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, p ports.CheckoutParams) (ports.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.ProfileID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataProfileKey, p.ProfileID)

	cs, err := s.sessions.New(params)
	if err != nil {
		return ports.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return ports.CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

// ParseWebhook verifies the signature header and decodes the event. Only the
// checkout session payload is decoded; other event types come back with
// ID and Type set.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (ports.WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return ports.WebhookEvent{}, fmt.Errorf("%w: %v", ports.ErrInvalidSignature, err)
	}

	out := ports.WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != ports.EventCheckoutCompleted {
		return out, nil
	}
	if ev.Data == nil {
		return ports.WebhookEvent{}, errors.New("checkout event without data")
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return ports.WebhookEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.ProfileID = cs.Metadata[metadataProfileKey]
	if out.ProfileID == "" {
		out.ProfileID = cs.ClientReferenceID
	}
	if cs.Customer != nil {
		out.CustomerID = cs.Customer.ID
	}
	return out, nil
}
