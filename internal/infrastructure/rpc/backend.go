package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

var _ ports.Backend = (*Client)(nil)

const referralSelect = "*,referral_tags(tag:tags(id,name,user_id))"

func eq(v string) string { return "eq." + v }

func (c *Client) selectProfiles(ctx context.Context, op string, q url.Values) ([]domain.Profile, error) {
	q.Set("select", "*")
	var rows []profileRow
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/rest/v1/profiles", query: q}, &rows); err != nil {
		return nil, err
	}
	return profilesFromRows(op, rows)
}

func (c *Client) selectProfile(ctx context.Context, op, column, value string) (domain.Profile, error) {
	profiles, err := c.selectProfiles(ctx, op, url.Values{column: {eq(value)}, "limit": {"1"}})
	if err != nil {
		return domain.Profile{}, err
	}
	if len(profiles) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profiles[0], nil
}

func (c *Client) GetProfileByPrivyID(ctx context.Context, privyID string) (domain.Profile, error) {
	const op = "get_profile_by_privy_id"
	var raw json.RawMessage
	if err := c.procedure(ctx, op, map[string]any{"p_privy_id": privyID}, &raw); err != nil {
		return domain.Profile{}, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	// The procedure returns either a single row or a one-element set.
	var row profileRow
	if raw[0] == '[' {
		var rows []profileRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			return domain.Profile{}, &domain.RemoteError{Op: op, Err: err}
		}
		if len(rows) == 0 {
			return domain.Profile{}, domain.ErrProfileNotFound
		}
		row = rows[0]
	} else if err := json.Unmarshal(raw, &row); err != nil {
		return domain.Profile{}, &domain.RemoteError{Op: op, Err: err}
	}
	// A composite-returning function answers a miss with an all-null row.
	if row.ID == nil && row.Username == nil {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	p, err := row.toDomain()
	if err != nil {
		return domain.Profile{}, &domain.RemoteError{Op: op, Err: err}
	}
	return p, nil
}

func (c *Client) GetProfileByID(ctx context.Context, id string) (domain.Profile, error) {
	return c.selectProfile(ctx, "get profile", "id", id)
}

func (c *Client) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	return c.selectProfile(ctx, "get profile by username", "username", username)
}

func (c *Client) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	q := url.Values{"select": {"id"}, "username": {eq(username)}, "limit": {"1"}}
	if err := c.do(ctx, request{op: "check username", method: http.MethodGet, path: "/rest/v1/profiles", query: q}, &rows); err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}

func (c *Client) ClaimUsername(ctx context.Context, in domain.NewProfile) (domain.Profile, error) {
	const op = "claim username"
	plan := domain.PlanFor(domain.TierBasic)
	body := map[string]any{
		"privy_id":      in.PrivyID,
		"username":      in.Username,
		"bio":           domain.DefaultBio,
		"tier":          domain.TierBasic,
		"max_referrals": plan.MaxReferrals,
		"max_tags":      plan.MaxTags,
	}
	if in.Email != "" {
		body["email"] = in.Email
	}
	var rows []profileRow
	err := c.do(ctx, request{
		op: op, method: http.MethodPost, path: "/rest/v1/profiles",
		body: body, prefer: "return=representation",
	}, &rows)
	if err != nil {
		return domain.Profile{}, err
	}
	profiles, err := profilesFromRows(op, rows)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(profiles) == 0 {
		return domain.Profile{}, &domain.RemoteError{Op: op, Err: errMissingColumn}
	}
	return profiles[0], nil
}

func (c *Client) UpdateProfile(ctx context.Context, profileID string, upd domain.ProfileUpdate) (domain.Profile, error) {
	const op = "update_profile_v2"
	params := map[string]any{"p_profile_id": profileID}
	if upd.Bio != nil {
		params["p_bio"] = *upd.Bio
	}
	if upd.AvatarURL != nil {
		params["p_avatar_url"] = *upd.AvatarURL
	}
	if upd.Email != nil {
		params["p_email"] = nullable(*upd.Email)
	}
	if s := upd.SocialLinks; s != nil {
		params["p_twitter"] = s.Twitter
		params["p_instagram"] = s.Instagram
		params["p_linkedin"] = s.LinkedIn
		params["p_website"] = s.Website
	}
	if t := upd.Theme; t != nil {
		params["p_primary_color"] = t.Primary
		params["p_secondary_color"] = t.Secondary
		params["p_body_color"] = t.Body
		params["p_card_color"] = t.Card
	}

	var row profileRow
	if err := c.procedure(ctx, op, params, &row); err != nil {
		return domain.Profile{}, err
	}
	p, err := row.toDomain()
	if err != nil {
		return domain.Profile{}, &domain.RemoteError{Op: op, Err: err}
	}
	return p, nil
}

func (c *Client) SetStripeCustomerID(ctx context.Context, profileID, customerID string) error {
	return c.do(ctx, request{
		op:     "set customer id",
		method: http.MethodPatch,
		path:   "/rest/v1/profiles",
		query:  url.Values{"id": {eq(profileID)}},
		body:   map[string]any{"stripe_customer_id": customerID},
	}, nil)
}

func (c *Client) ListReferrals(ctx context.Context, ownerID string) ([]domain.Referral, error) {
	const op = "list referrals"
	q := url.Values{
		"select":  {referralSelect},
		"user_id": {eq(ownerID)},
		"order":   {"created_at.desc"},
	}
	var rows []referralRow
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/rest/v1/referrals", query: q}, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Referral, 0, len(rows))
	for _, r := range rows {
		ref, err := r.toDomain()
		if err != nil {
			return nil, &domain.RemoteError{Op: op, Err: err}
		}
		out = append(out, ref)
	}
	return out, nil
}

func referralParams(ownerID string, in domain.ReferralInput) map[string]any {
	tagNames := in.TagNames
	if tagNames == nil {
		tagNames = []string{}
	}
	return map[string]any{
		"p_user_id":     ownerID,
		"p_title":       in.Title,
		"p_description": nullable(in.Description),
		"p_url":         in.URL,
		"p_image_url":   nullable(in.ImageURL),
		"p_subtitle":    nullable(in.Subtitle),
		"p_tag_names":   tagNames,
	}
}

func (c *Client) writeReferral(ctx context.Context, op string, params map[string]any) (domain.Referral, error) {
	var row referralRow
	if err := c.procedure(ctx, op, params, &row); err != nil {
		return domain.Referral{}, err
	}
	if str(row.ID) == "" {
		return domain.Referral{}, &domain.RemoteError{Op: op, Err: missing("referrals", "id")}
	}
	// Procedures may answer with the id only; the editor re-fetches the list.
	ref := domain.Referral{
		ID:          *row.ID,
		OwnerID:     str(row.UserID),
		Title:       str(row.Title),
		Description: str(row.Description),
		URL:         str(row.URL),
		ImageURL:    str(row.ImageURL),
		Subtitle:    str(row.Subtitle),
	}
	if row.CreatedAt != nil {
		ref.CreatedAt = *row.CreatedAt
	}
	return ref, nil
}

func (c *Client) CreateReferral(ctx context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	return c.writeReferral(ctx, "create_referral", referralParams(ownerID, in))
}

func (c *Client) UpdateReferral(ctx context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	params := referralParams(ownerID, in)
	params["p_referral_id"] = id
	return c.writeReferral(ctx, "update_referral", params)
}

func (c *Client) DeleteReferral(ctx context.Context, id, ownerID string) error {
	return c.procedure(ctx, "delete_referral", map[string]any{"p_referral_id": id, "p_user_id": ownerID}, nil)
}

func (c *Client) ListTags(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	const op = "list tags"
	q := url.Values{
		"select":  {"id,name,user_id,referral_tags(count)"},
		"user_id": {eq(ownerID)},
		"order":   {"name.asc"},
	}
	var rows []tagRow
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/rest/v1/tags", query: q}, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Tag, 0, len(rows))
	for _, r := range rows {
		t, err := r.toDomain()
		if err != nil {
			return nil, &domain.RemoteError{Op: op, Err: err}
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) ManageTag(ctx context.Context, ownerID, name string) (domain.Tag, error) {
	const op = "manage_tag"
	var row tagRow
	if err := c.procedure(ctx, op, map[string]any{"p_name": domain.NormalizeTagName(name), "p_user_id": ownerID}, &row); err != nil {
		return domain.Tag{}, err
	}
	t, err := row.toDomain()
	if err != nil {
		return domain.Tag{}, &domain.RemoteError{Op: op, Err: err}
	}
	return t, nil
}

func (c *Client) DeleteTag(ctx context.Context, id, ownerID string) error {
	var deleted bool
	if err := c.procedure(ctx, "delete_tag", map[string]any{"p_tag_id": id, "p_user_id": ownerID}, &deleted); err != nil {
		return err
	}
	if !deleted {
		return domain.ErrTagNotFound
	}
	return nil
}

func (c *Client) AdminListProfiles(ctx context.Context, query string) ([]domain.Profile, error) {
	const op = "admin_get_profiles"
	var rows []profileRow
	if err := c.procedure(ctx, op, map[string]any{}, &rows); err != nil {
		return nil, err
	}
	all, err := profilesFromRows(op, rows)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]domain.Profile, 0, len(all))
	for _, p := range all {
		if strings.Contains(p.Username, q) || strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) UpdateUserTier(ctx context.Context, profileID string, tier domain.Tier, reason string) error {
	return c.procedure(ctx, "admin_update_user_tier", map[string]any{
		"p_profile_id": profileID,
		"p_new_tier":   tier,
		"p_reason":     reason,
	}, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	var rows []json.RawMessage
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	return c.do(ctx, request{op: "ping", method: http.MethodGet, path: "/rest/v1/profiles", query: q}, &rows)
}

// nullable sends empty optional strings as SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
