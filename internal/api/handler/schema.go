package handler

import (
	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/quota"
	"github.com/easyref/easyref-api/internal/core/theme"
)

// --- Request types ---

type claimRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type socialLinksRequest struct {
	Twitter   string `json:"twitter" validate:"max=200"`
	Instagram string `json:"instagram" validate:"max=200"`
	LinkedIn  string `json:"linkedin" validate:"max=200"`
	Website   string `json:"website" validate:"max=200"`
}

type settingsRequest struct {
	Bio         *string             `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string             `json:"avatar_url" validate:"omitempty,max=2048"`
	Email       *string             `json:"email"`
	SocialLinks *socialLinksRequest `json:"social_links"`
	Theme       *domain.ThemeColors `json:"theme"`
}

func (r settingsRequest) toUpdate() domain.ProfileUpdate {
	upd := domain.ProfileUpdate{
		Bio:       r.Bio,
		AvatarURL: r.AvatarURL,
		Email:     r.Email,
		Theme:     r.Theme,
	}
	if s := r.SocialLinks; s != nil {
		upd.SocialLinks = &domain.SocialLinks{
			Twitter:   s.Twitter,
			Instagram: s.Instagram,
			LinkedIn:  s.LinkedIn,
			Website:   s.Website,
		}
	}
	return upd
}

type themeFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=primary secondary body card"`
	Value string `json:"value"`
}

type tagRequest struct {
	Name string `json:"name"`
}

type checkoutRequest struct {
	Interval string `json:"interval" validate:"omitempty,oneof=monthly yearly"`
}

type setTierRequest struct {
	Tier   string `json:"tier" validate:"required,oneof=basic premium"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// --- Response types ---

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

type availabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

type themeResponse struct {
	theme.State
	Preview domain.ThemeColors `json:"preview"`
}

type referralResponse struct {
	Referral domain.Referral `json:"referral"`
	Quota    quota.Summary   `json:"quota"`
}

type referralListResponse struct {
	Referrals []domain.Referral `json:"referrals"`
	Quota     quota.Summary     `json:"quota"`
}

type tagResponse struct {
	Tag   domain.Tag    `json:"tag"`
	Quota quota.Summary `json:"quota"`
}

type tagListResponse struct {
	Tags  []domain.Tag  `json:"tags"`
	Quota quota.Summary `json:"quota"`
}

type confirmationResponse struct {
	ID    string `json:"id"`
	Armed bool   `json:"armed"`
}

type webhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
