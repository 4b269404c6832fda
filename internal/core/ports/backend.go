package ports

import (
	"context"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Backend is the storage collaborator. Every method is a single remote
// round trip; persistence rules (tag in use, quotas, unique usernames) are
// enforced behind it and surface as domain errors.
type Backend interface {
	// GetProfileByPrivyID resolves the profile of an authenticated identity.
	GetProfileByPrivyID(ctx context.Context, privyID string) (domain.Profile, error)
	GetProfileByID(ctx context.Context, id string) (domain.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	// ClaimUsername inserts the profile. A taken username fails with
	// DomainConflict{username_taken}.
	ClaimUsername(ctx context.Context, in domain.NewProfile) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, upd domain.ProfileUpdate) (domain.Profile, error)
	SetStripeCustomerID(ctx context.Context, profileID, customerID string) error

	// ListReferrals returns the owner's referrals, newest first.
	ListReferrals(ctx context.Context, ownerID string) ([]domain.Referral, error)
	CreateReferral(ctx context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error)
	UpdateReferral(ctx context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error)
	DeleteReferral(ctx context.Context, id, ownerID string) error

	ListTags(ctx context.Context, ownerID string) ([]domain.Tag, error)
	// ManageTag upserts a tag by normalized name.
	ManageTag(ctx context.Context, ownerID, name string) (domain.Tag, error)
	DeleteTag(ctx context.Context, id, ownerID string) error

	AdminListProfiles(ctx context.Context, query string) ([]domain.Profile, error)
	// UpdateUserTier switches tier and resets the quota maxima to the plan.
	UpdateUserTier(ctx context.Context, profileID string, tier domain.Tier, reason string) error

	Ping(ctx context.Context) error
}

// ProfileCache caches unfiltered public profiles by username.
type ProfileCache interface {
	Get(ctx context.Context, username string) (domain.PublicProfile, bool, error)
	Set(ctx context.Context, username string, pp domain.PublicProfile) error
	Invalidate(ctx context.Context, username string) error
}

// EventDeduper remembers processed webhook event ids.
type EventDeduper interface {
	// MarkNew records id and reports whether it was not seen before.
	MarkNew(ctx context.Context, id string) (bool, error)
	// Forget drops id so a later delivery counts as new again.
	Forget(ctx context.Context, id string) error
}
