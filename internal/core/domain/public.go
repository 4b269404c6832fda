package domain

// PublicProfile is what visitors see. Private fields are never copied in.
type PublicProfile struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Bio         string      `json:"bio"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Tier        Tier        `json:"tier"`
	Theme       ThemeColors `json:"theme"`
	SocialLinks SocialLinks `json:"social_links"`
	Referrals   []Referral  `json:"referrals"`
	// Tags lists every tag used by the creator's referrals, independent of
	// the active filter.
	Tags []string `json:"tags"`
}

// NewPublicProfile builds the unfiltered visitor view of p.
func NewPublicProfile(p Profile, refs []Referral) PublicProfile {
	bio := p.Bio
	if bio == "" {
		bio = DefaultBio
	}
	if refs == nil {
		refs = []Referral{}
	}
	return PublicProfile{
		ID:          p.ID,
		Username:    p.Username,
		Bio:         bio,
		AvatarURL:   p.AvatarURL,
		Tier:        p.Tier,
		Theme:       p.Theme.WithDefaults(),
		SocialLinks: p.SocialLinks,
		Referrals:   refs,
		Tags:        DistinctTagNames(refs),
	}
}

// Filter narrows the referrals by search text and active tag.
func (pp PublicProfile) Filter(query, activeTag string) PublicProfile {
	pp.Referrals = FilterReferrals(pp.Referrals, query, NormalizeTagName(activeTag))
	return pp
}
