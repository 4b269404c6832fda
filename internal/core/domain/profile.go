package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tier is the subscription level of a profile.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// ParseTier converts s into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierBasic:
		return TierBasic, nil
	case TierPremium:
		return TierPremium, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Plan holds the quota maxima granted by a tier.
type Plan struct {
	MaxReferrals int `json:"max_referrals"`
	MaxTags      int `json:"max_tags"`
}

var plans = map[Tier]Plan{
	TierBasic:   {MaxReferrals: 10, MaxTags: 5},
	TierPremium: {MaxReferrals: 100, MaxTags: 50},
}

// PlanFor returns the maxima for tier t. Unknown tiers get the basic plan.
func PlanFor(t Tier) Plan {
	if p, ok := plans[t]; ok {
		return p
	}
	return plans[TierBasic]
}

// DefaultBio is shown for profiles that never wrote one.
const DefaultBio = "Tech enthusiast sharing my favorite products and services."

// SocialLinks are optional links rendered on the public page.
type SocialLinks struct {
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Profile is a creator account. Username is set once and never renamed.
type Profile struct {
	ID               string      `json:"id"`
	PrivyID          string      `json:"-"`
	Username         string      `json:"username"`
	Bio              string      `json:"bio"`
	AvatarURL        string      `json:"avatar_url"`
	Email            string      `json:"email,omitempty"`
	Tier             Tier        `json:"tier"`
	MaxReferrals     int         `json:"max_referrals"`
	MaxTags          int         `json:"max_tags"`
	IsAdmin          bool        `json:"is_admin"`
	Theme            ThemeColors `json:"theme"`
	SocialLinks      SocialLinks `json:"social_links"`
	StripeCustomerID string      `json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ApplyTier switches p to tier t and replaces both maxima with the plan
// constants. Applying the same tier twice yields the same profile.
func ApplyTier(p *Profile, t Tier) {
	plan := PlanFor(t)
	p.Tier = t
	p.MaxReferrals = plan.MaxReferrals
	p.MaxTags = plan.MaxTags
}

// ProfileUpdate is a partial settings update; nil fields are left untouched.
type ProfileUpdate struct {
	Bio         *string
	AvatarURL   *string
	Email       *string
	SocialLinks *SocialLinks
	Theme       *ThemeColors
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Bio == nil && u.AvatarURL == nil && u.Email == nil && u.SocialLinks == nil && u.Theme == nil
}

// NewProfile holds what is needed to claim a username.
type NewProfile struct {
	PrivyID  string
	Username string
	Email    string
}

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername checks the username shape. Uniqueness is decided by the store.
func ValidateUsername(s string) error {
	var msg string
	switch {
	case len(s) < UsernameMinLength:
		msg = fmt.Sprintf("username must be at least %d characters", UsernameMinLength)
	case len(s) > UsernameMaxLength:
		msg = fmt.Sprintf("username must be at most %d characters", UsernameMaxLength)
	case !usernamePattern.MatchString(s):
		msg = "username can only contain letters, numbers, and underscores"
	default:
		return nil
	}
	return &ValidationError{Fields: []FieldError{{Field: "username", Message: msg}}}
}
