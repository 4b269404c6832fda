// Package quota derives remaining allowances from plan maxima and decides
// when creation is blocked.
package quota

import (
	"fmt"
	"strings"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// NearLimitThreshold is the remaining count at or below which a warning is shown.
const NearLimitThreshold = 2

// Resource is a quota-limited kind of record.
type Resource string

const (
	Referrals Resource = "referral"
	Tags      Resource = "tag"
)

// View is the derived quota state of one resource.
type View struct {
	Current   int  `json:"current"`
	Max       int  `json:"max"`
	Remaining int  `json:"remaining"`
	NearLimit bool `json:"near_limit"`
	AtLimit   bool `json:"at_limit"`
}

// Evaluate computes the quota view for current usage against max.
func Evaluate(current, max int) View {
	remaining := max - current
	return View{
		Current:   current,
		Max:       max,
		Remaining: remaining,
		NearLimit: remaining <= NearLimitThreshold,
		AtLimit:   remaining <= 0,
	}
}

// Style selects how a banner is rendered.
type Style string

const (
	StyleNone     Style = "none"
	StyleWarning  Style = "warning"
	StyleBlocking Style = "blocking"
)

// Banner is the user-facing quota notice.
type Banner struct {
	Resource Resource `json:"resource"`
	Style    Style    `json:"style"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Visible reports whether the banner is shown at all.
func (b Banner) Visible() bool { return b.Style != StyleNone }

// BannerFor renders the notice for view.
func BannerFor(r Resource, v View) Banner {
	switch {
	case v.AtLimit:
		return Banner{
			Resource: r,
			Style:    StyleBlocking,
			Title:    fmt.Sprintf("%s limit reached", capitalize(string(r))),
			Message:  fmt.Sprintf("You've reached your maximum number of %ss.", r),
		}
	case v.NearLimit:
		return Banner{
			Resource: r,
			Style:    StyleWarning,
			Title:    fmt.Sprintf("Approaching %s limit", r),
			Message:  fmt.Sprintf("You can add %d more %s.", v.Remaining, plural(r, v.Remaining)),
		}
	}
	return Banner{Resource: r, Style: StyleNone}
}

// Gate returns a limit conflict when v blocks creating another r.
func Gate(r Resource, v View) error {
	if !v.AtLimit {
		return nil
	}
	if r == Tags {
		return domain.NewConflict(domain.ConflictTagLimit)
	}
	return domain.NewConflict(domain.ConflictReferralLimit)
}

// Summary bundles both quotas of a profile.
type Summary struct {
	Referrals       View   `json:"referrals"`
	Tags            View   `json:"tags"`
	ReferralsBanner Banner `json:"referrals_banner"`
	TagsBanner      Banner `json:"tags_banner"`
}

// Summarize evaluates the profile maxima against the given counts.
func Summarize(p domain.Profile, referrals, tags int) Summary {
	rv := Evaluate(referrals, p.MaxReferrals)
	tv := Evaluate(tags, p.MaxTags)
	return Summary{
		Referrals:       rv,
		Tags:            tv,
		ReferralsBanner: BannerFor(Referrals, rv),
		TagsBanner:      BannerFor(Tags, tv),
	}
}

func plural(r Resource, n int) string {
	if n == 1 {
		return string(r)
	}
	return string(r) + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
