package domain

import "strings"

// Tag groups referrals. Names are lowercase and unique per owner.
type Tag struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id,omitempty"`
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
}

// NormalizeTagName trims and lowercases a tag name.
func NormalizeTagName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTagNames normalizes names, dropping empties and duplicates while
// keeping the first occurrence order.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeTagName(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
