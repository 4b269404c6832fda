package mongo

import (
	"time"

	"github.com/easyref/easyref-api/internal/core/domain"
)

const (
	collectionProfiles    = "profiles"
	collectionReferrals   = "referrals"
	collectionTags        = "tags"
	collectionTierChanges = "tier_changes"
)

type themeDoc struct {
	Primary   string `bson:"primary"`
	Secondary string `bson:"secondary"`
	Body      string `bson:"body"`
	Card      string `bson:"card"`
}

type socialDoc struct {
	Twitter   string `bson:"twitter,omitempty"`
	Instagram string `bson:"instagram,omitempty"`
	LinkedIn  string `bson:"linkedin,omitempty"`
	Website   string `bson:"website,omitempty"`
}

type profileDoc struct {
	ID               string    `bson:"_id"`
	PrivyID          string    `bson:"privy_id"`
	Username         string    `bson:"username"`
	Bio              string    `bson:"bio"`
	AvatarURL        string    `bson:"avatar_url,omitempty"`
	Email            string    `bson:"email,omitempty"`
	Tier             string    `bson:"tier"`
	MaxReferrals     int       `bson:"max_referrals"`
	MaxTags          int       `bson:"max_tags"`
	IsAdmin          bool      `bson:"is_admin"`
	Theme            themeDoc  `bson:"theme"`
	Social           socialDoc `bson:"social_links"`
	StripeCustomerID string    `bson:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d profileDoc) toDomain() domain.Profile {
	p := domain.Profile{
		ID:        d.ID,
		PrivyID:   d.PrivyID,
		Username:  d.Username,
		Bio:       d.Bio,
		AvatarURL: d.AvatarURL,
		Email:     d.Email,
		IsAdmin:   d.IsAdmin,
		Theme: domain.ThemeColors{
			Primary:   d.Theme.Primary,
			Secondary: d.Theme.Secondary,
			Body:      d.Theme.Body,
			Card:      d.Theme.Card,
		}.WithDefaults(),
		SocialLinks: domain.SocialLinks{
			Twitter:   d.Social.Twitter,
			Instagram: d.Social.Instagram,
			LinkedIn:  d.Social.LinkedIn,
			Website:   d.Social.Website,
		},
		StripeCustomerID: d.StripeCustomerID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	tier, err := domain.ParseTier(d.Tier)
	if err != nil {
		tier = domain.TierBasic
	}
	domain.ApplyTier(&p, tier)
	if d.MaxReferrals > 0 {
		p.MaxReferrals = d.MaxReferrals
	}
	if d.MaxTags > 0 {
		p.MaxTags = d.MaxTags
	}
	if p.Bio == "" {
		p.Bio = domain.DefaultBio
	}
	return p
}

func newProfileDoc(id string, in domain.NewProfile, now time.Time) profileDoc {
	plan := domain.PlanFor(domain.TierBasic)
	t := domain.DefaultTheme()
	return profileDoc{
		ID:           id,
		PrivyID:      in.PrivyID,
		Username:     in.Username,
		Bio:          domain.DefaultBio,
		Email:        in.Email,
		Tier:         string(domain.TierBasic),
		MaxReferrals: plan.MaxReferrals,
		MaxTags:      plan.MaxTags,
		Theme:        themeDoc{Primary: t.Primary, Secondary: t.Secondary, Body: t.Body, Card: t.Card},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type tagDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d tagDoc) toDomain(usage int) domain.Tag {
	return domain.Tag{ID: d.ID, OwnerID: d.UserID, Name: d.Name, UsageCount: usage}
}

type referralDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description,omitempty"`
	URL         string    `bson:"url"`
	ImageURL    string    `bson:"image_url,omitempty"`
	Subtitle    string    `bson:"subtitle,omitempty"`
	TagIDs      []string  `bson:"tag_ids"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// toDomain resolves tag ids through tags; ids without a tag are skipped.
func (d referralDoc) toDomain(tags map[string]domain.Tag) domain.Referral {
	r := domain.Referral{
		ID:          d.ID,
		OwnerID:     d.UserID,
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
		ImageURL:    d.ImageURL,
		Subtitle:    d.Subtitle,
		Tags:        make([]domain.Tag, 0, len(d.TagIDs)),
		CreatedAt:   d.CreatedAt,
	}
	for _, id := range d.TagIDs {
		if t, ok := tags[id]; ok {
			r.Tags = append(r.Tags, t)
		}
	}
	domain.SortTags(r.Tags)
	return r
}
