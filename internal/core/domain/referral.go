package domain

import (
	"sort"
	"strings"
	"time"
)

// Referral is a link curated by a profile owner.
type Referral struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasTag reports whether the referral carries a tag named name.
func (r Referral) HasTag(name string) bool {
	for _, t := range r.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// HasTagID reports whether the referral carries the tag with the given id.
func (r Referral) HasTagID(id string) bool {
	for _, t := range r.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Matches reports whether query appears, case-insensitively, in the title,
// the description or one of the tag names. An empty query matches.
func (r Referral) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t.Name), q) {
			return true
		}
	}
	return false
}

// ReferralInput is the full set of fields sent in one create or update call,
// tag associations included.
type ReferralInput struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	Subtitle    string
	TagNames    []string
}

// SortTags orders tags by name.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
}

// FilterReferrals keeps referrals matching query and, when activeTag is set,
// carrying that exact tag.
func FilterReferrals(refs []Referral, query, activeTag string) []Referral {
	out := make([]Referral, 0, len(refs))
	for _, r := range refs {
		if !r.Matches(query) {
			continue
		}
		if activeTag != "" && !r.HasTag(activeTag) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DistinctTagNames returns the sorted set of tag names used by refs.
func DistinctTagNames(refs []Referral) []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, r := range refs {
		for _, t := range r.Tags {
			if _, ok := seen[t.Name]; ok {
				continue
			}
			seen[t.Name] = struct{}{}
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names
}
