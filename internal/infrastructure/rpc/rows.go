package rpc

import (
	"errors"
	"fmt"
	"time"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Rows are decoded into explicit types and checked before they reach the
// domain. A row missing a required column fails the call.

var errMissingColumn = errors.New("missing required column")

func missing(table, column string) error {
	return fmt.Errorf("%s row: %w %q", table, errMissingColumn, column)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type profileRow struct {
	ID               *string    `json:"id"`
	PrivyID          *string    `json:"privy_id"`
	Username         *string    `json:"username"`
	Bio              *string    `json:"bio"`
	AvatarURL        *string    `json:"avatar_url"`
	Email            *string    `json:"email"`
	Tier             *string    `json:"tier"`
	MaxReferrals     *int       `json:"max_referrals"`
	MaxTags          *int       `json:"max_tags"`
	IsAdmin          *bool      `json:"is_admin"`
	Twitter          *string    `json:"twitter"`
	Instagram        *string    `json:"instagram"`
	LinkedIn         *string    `json:"linkedin"`
	Website          *string    `json:"website"`
	PrimaryColor     *string    `json:"primary_color"`
	SecondaryColor   *string    `json:"secondary_color"`
	BodyColor        *string    `json:"body_color"`
	CardColor        *string    `json:"card_color"`
	StripeCustomerID *string    `json:"stripe_customer_id"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

func (r profileRow) toDomain() (domain.Profile, error) {
	switch {
	case str(r.ID) == "":
		return domain.Profile{}, missing("profiles", "id")
	case str(r.Username) == "":
		return domain.Profile{}, missing("profiles", "username")
	case r.Tier == nil:
		return domain.Profile{}, missing("profiles", "tier")
	}
	tier, err := domain.ParseTier(*r.Tier)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profiles row: %w", err)
	}

	p := domain.Profile{
		ID:        *r.ID,
		PrivyID:   str(r.PrivyID),
		Username:  *r.Username,
		Bio:       str(r.Bio),
		AvatarURL: str(r.AvatarURL),
		Email:     str(r.Email),
		Theme: domain.ThemeColors{
			Primary:   str(r.PrimaryColor),
			Secondary: str(r.SecondaryColor),
			Body:      str(r.BodyColor),
			Card:      str(r.CardColor),
		}.WithDefaults(),
		SocialLinks: domain.SocialLinks{
			Twitter:   str(r.Twitter),
			Instagram: str(r.Instagram),
			LinkedIn:  str(r.LinkedIn),
			Website:   str(r.Website),
		},
		StripeCustomerID: str(r.StripeCustomerID),
	}
	if p.Bio == "" {
		p.Bio = domain.DefaultBio
	}
	domain.ApplyTier(&p, tier)
	// Explicit maxima win over the plan defaults.
	if r.MaxReferrals != nil {
		p.MaxReferrals = *r.MaxReferrals
	}
	if r.MaxTags != nil {
		p.MaxTags = *r.MaxTags
	}
	if r.IsAdmin != nil {
		p.IsAdmin = *r.IsAdmin
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		p.UpdatedAt = *r.UpdatedAt
	}
	return p, nil
}

type tagRow struct {
	ID           *string `json:"id"`
	UserID       *string `json:"user_id"`
	Name         *string `json:"name"`
	ReferralTags []struct {
		Count int `json:"count"`
	} `json:"referral_tags"`
}

func (r tagRow) toDomain() (domain.Tag, error) {
	switch {
	case str(r.ID) == "":
		return domain.Tag{}, missing("tags", "id")
	case str(r.Name) == "":
		return domain.Tag{}, missing("tags", "name")
	}
	t := domain.Tag{ID: *r.ID, OwnerID: str(r.UserID), Name: *r.Name}
	if len(r.ReferralTags) > 0 {
		t.UsageCount = r.ReferralTags[0].Count
	}
	return t, nil
}

type referralRow struct {
	ID           *string    `json:"id"`
	UserID       *string    `json:"user_id"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	URL          *string    `json:"url"`
	ImageURL     *string    `json:"image_url"`
	Subtitle     *string    `json:"subtitle"`
	CreatedAt    *time.Time `json:"created_at"`
	ReferralTags []struct {
		Tag *tagRow `json:"tag"`
	} `json:"referral_tags"`
}

func (r referralRow) toDomain() (domain.Referral, error) {
	switch {
	case str(r.ID) == "":
		return domain.Referral{}, missing("referrals", "id")
	case str(r.Title) == "":
		return domain.Referral{}, missing("referrals", "title")
	case str(r.URL) == "":
		return domain.Referral{}, missing("referrals", "url")
	}

	ref := domain.Referral{
		ID:          *r.ID,
		OwnerID:     str(r.UserID),
		Title:       *r.Title,
		Description: str(r.Description),
		URL:         *r.URL,
		ImageURL:    str(r.ImageURL),
		Subtitle:    str(r.Subtitle),
		Tags:        []domain.Tag{},
	}
	if r.CreatedAt != nil {
		ref.CreatedAt = *r.CreatedAt
	}
	for _, rt := range r.ReferralTags {
		if rt.Tag == nil {
			continue
		}
		t, err := rt.Tag.toDomain()
		if err != nil {
			return domain.Referral{}, err
		}
		ref.Tags = append(ref.Tags, t)
	}
	domain.SortTags(ref.Tags)
	return ref, nil
}

func profilesFromRows(op string, rows []profileRow) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return nil, &domain.RemoteError{Op: op, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}
