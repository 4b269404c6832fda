package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

// BillingConfig carries the prices and redirect base of the checkout flow.
type BillingConfig struct {
	MonthlyPriceID string
	YearlyPriceID  string
	SiteURL        string
}

type BillingService struct {
	backend  ports.Backend
	payments ports.Payments
	dedup    ports.EventDeduper
	cfg      BillingConfig
	log      zerolog.Logger

	// OnTierChanged runs after a tier was written, e.g. to refresh caches.
	OnTierChanged func(ctx context.Context, profileID string)
}

func NewBillingService(
	backend ports.Backend,
	payments ports.Payments,
	dedup ports.EventDeduper,
	cfg BillingConfig,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{
		backend:  backend,
		payments: payments,
		dedup:    dedup,
		cfg:      cfg,
		log:      log,
	}
}

// Checkout opens a hosted subscription checkout for p, creating the payment
// customer on first use.
func (s *BillingService) Checkout(ctx context.Context, p domain.Profile, interval ports.BillingInterval) (ports.CheckoutSession, error) {
	if p.Tier == domain.TierPremium {
		return ports.CheckoutSession{}, domain.NewConflict(domain.ConflictAlreadyPremium)
	}

	var priceID string
	switch interval {
	case ports.Monthly, "":
		priceID = s.cfg.MonthlyPriceID
	case ports.Yearly:
		priceID = s.cfg.YearlyPriceID
	default:
		return ports.CheckoutSession{}, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "interval", Message: "interval must be monthly or yearly"},
		}}
	}

	customerID := p.StripeCustomerID
	if customerID == "" {
		id, err := s.payments.CreateCustomer(ctx, p.Email, p.ID)
		if err != nil {
			return ports.CheckoutSession{}, fmt.Errorf("checkout: create customer: %w", err)
		}
		if err := s.backend.SetStripeCustomerID(ctx, p.ID, id); err != nil {
			return ports.CheckoutSession{}, fmt.Errorf("checkout: store customer: %w", err)
		}
		customerID = id
	}

	base := strings.TrimRight(s.cfg.SiteURL, "/")
	sess, err := s.payments.CreateCheckoutSession(ctx, ports.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		ProfileID:  p.ID,
		SuccessURL: base + "/dashboard?upgrade=success",
		CancelURL:  base + "/dashboard?upgrade=cancelled",
	})
	if err != nil {
		return ports.CheckoutSession{}, fmt.Errorf("checkout: %w", err)
	}
	s.log.Info().Str("profile_id", p.ID).Str("session_id", sess.ID).Str("interval", string(interval)).Msg("checkout session created")
	return sess, nil
}

// VerifyWebhook checks the signature and reports whether the event is new.
// Repeated deliveries of the same event id yield fresh == false.
func (s *BillingService) VerifyWebhook(ctx context.Context, payload []byte, signature string) (ev ports.WebhookEvent, fresh bool, err error) {
	ev, err = s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return ports.WebhookEvent{}, false, err
	}

	fresh, err = s.dedup.MarkNew(ctx, ev.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("webhook dedup failed, processing anyway")
		return ev, true, nil
	}
	if !fresh {
		s.log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook skipped")
	}
	return ev, fresh, nil
}

// Process applies a verified event. Completed checkouts upgrade the profile
// named in the session metadata; applying the upgrade twice is harmless.
// A failed event is forgotten by the deduper so the provider's redelivery
// is processed again.
func (s *BillingService) Process(ctx context.Context, ev ports.WebhookEvent) error {
	err := s.apply(ctx, ev)
	if err == nil {
		return nil
	}
	if s.dedup != nil {
		if ferr := s.dedup.Forget(ctx, ev.ID); ferr != nil {
			s.log.Error().Err(ferr).Str("event_id", ev.ID).Msg("failed to release webhook for redelivery")
		}
	}
	return err
}

func (s *BillingService) apply(ctx context.Context, ev ports.WebhookEvent) error {
	if ev.Type != ports.EventCheckoutCompleted {
		s.log.Debug().Str("event_id", ev.ID).Str("type", ev.Type).Msg("webhook ignored")
		return nil
	}
	if ev.ProfileID == "" {
		return fmt.Errorf("process webhook %s: missing profile id in metadata", ev.ID)
	}

	if err := s.backend.UpdateUserTier(ctx, ev.ProfileID, domain.TierPremium, "checkout "+ev.SessionID); err != nil {
		return fmt.Errorf("process webhook %s: %w", ev.ID, err)
	}
	if ev.CustomerID != "" {
		if err := s.backend.SetStripeCustomerID(ctx, ev.ProfileID, ev.CustomerID); err != nil {
			s.log.Warn().Err(err).Str("profile_id", ev.ProfileID).Msg("failed to store customer id")
		}
	}
	s.tierChanged(ctx, ev.ProfileID)

	s.log.Info().
		Str("event_id", ev.ID).
		Str("profile_id", ev.ProfileID).
		Msg("profile upgraded to premium")
	return nil
}

// SetTier is the privileged tier switch. It resets the quota maxima.
func (s *BillingService) SetTier(ctx context.Context, profileID string, tier domain.Tier, reason string) (domain.Profile, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.Profile{}, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "reason", Message: "reason is required"},
		}}
	}
	if err := s.backend.UpdateUserTier(ctx, profileID, tier, reason); err != nil {
		return domain.Profile{}, fmt.Errorf("set tier: %w", err)
	}
	s.tierChanged(ctx, profileID)

	p, err := s.backend.GetProfileByID(ctx, profileID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("set tier: %w", err)
	}
	s.log.Info().Str("profile_id", profileID).Str("tier", string(tier)).Str("reason", reason).Msg("tier updated")
	return p, nil
}

func (s *BillingService) tierChanged(ctx context.Context, profileID string) {
	if s.OnTierChanged != nil {
		s.OnTierChanged(ctx, profileID)
	}
}
