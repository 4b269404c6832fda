package ports

import (
	"context"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// ProfileService covers profile lookup, username claim and the public page.
type ProfileService interface {
	Resolve(ctx context.Context, privyID string) (domain.Profile, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	Claim(ctx context.Context, in domain.NewProfile) (domain.Profile, error)
	Public(ctx context.Context, username, query, tag string) (domain.PublicProfile, error)
	Invalidate(ctx context.Context, p domain.Profile)
	AdminList(ctx context.Context, query string) ([]domain.Profile, error)
}

// BillingService covers checkout, payment webhooks and tier changes.
type BillingService interface {
	Checkout(ctx context.Context, p domain.Profile, interval BillingInterval) (CheckoutSession, error)
	VerifyWebhook(ctx context.Context, payload []byte, signature string) (WebhookEvent, bool, error)
	Process(ctx context.Context, ev WebhookEvent) error
	SetTier(ctx context.Context, profileID string, tier domain.Tier, reason string) (domain.Profile, error)
}
