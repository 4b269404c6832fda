package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory backend stub
// ---------------------------------------------------------------------------

type stubBackend struct {
	mu sync.Mutex

	profiles  map[string]domain.Profile // by id
	referrals map[string][]domain.Referral
	tags      map[string][]domain.Tag
	seq       int

	updateErr    error
	writeErr     error
	deleteTagErr error
	listErr      error
	getErr       error

	profileUpdates int
	listCalls      int
	tierCalls      []string
	customerIDs    map[string]string

	// hold, when set, blocks UpdateProfile until closed.
	hold    chan struct{}
	holding chan struct{}
}

func newStubBackend(profiles ...domain.Profile) *stubBackend {
	b := &stubBackend{
		profiles:    make(map[string]domain.Profile),
		referrals:   make(map[string][]domain.Referral),
		tags:        make(map[string][]domain.Tag),
		customerIDs: make(map[string]string),
	}
	for _, p := range profiles {
		b.profiles[p.ID] = p
	}
	return b
}

func basicProfile(id, username string) domain.Profile {
	p := domain.Profile{ID: id, PrivyID: "did:" + id, Username: username, Email: username + "@example.com", Theme: domain.DefaultTheme()}
	domain.ApplyTier(&p, domain.TierBasic)
	return p
}

func (b *stubBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

func (b *stubBackend) GetProfileByPrivyID(_ context.Context, privyID string) (domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.profiles {
		if p.PrivyID == privyID {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrProfileNotFound
}

func (b *stubBackend) GetProfileByID(_ context.Context, id string) (domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return domain.Profile{}, b.getErr
	}
	p, ok := b.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (b *stubBackend) GetProfileByUsername(_ context.Context, username string) (domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.profiles {
		if p.Username == username {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrProfileNotFound
}

func (b *stubBackend) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := b.GetProfileByUsername(ctx, username)
	return err != nil, nil
}

func (b *stubBackend) ClaimUsername(ctx context.Context, in domain.NewProfile) (domain.Profile, error) {
	if ok, _ := b.UsernameAvailable(ctx, in.Username); !ok {
		return domain.Profile{}, domain.NewConflict(domain.ConflictUsernameTaken)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := domain.Profile{ID: b.nextID("p"), PrivyID: in.PrivyID, Username: in.Username, Email: in.Email, Theme: domain.DefaultTheme()}
	domain.ApplyTier(&p, domain.TierBasic)
	b.profiles[p.ID] = p
	return p, nil
}

func (b *stubBackend) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (domain.Profile, error) {
	if b.hold != nil {
		close(b.holding)
		<-b.hold
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profileUpdates++
	if b.updateErr != nil {
		return domain.Profile{}, b.updateErr
	}
	p, ok := b.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
	}
	if upd.Email != nil {
		p.Email = *upd.Email
	}
	if upd.SocialLinks != nil {
		p.SocialLinks = *upd.SocialLinks
	}
	if upd.Theme != nil {
		p.Theme = *upd.Theme
	}
	p.UpdatedAt = time.Now()
	b.profiles[id] = p
	return p, nil
}

func (b *stubBackend) SetStripeCustomerID(_ context.Context, profileID, customerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customerIDs[profileID] = customerID
	p := b.profiles[profileID]
	p.StripeCustomerID = customerID
	b.profiles[profileID] = p
	return nil
}

func (b *stubBackend) ListReferrals(_ context.Context, ownerID string) ([]domain.Referral, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]domain.Referral(nil), b.referrals[ownerID]...), nil
}

func (b *stubBackend) upsertTags(ownerID string, names []string) []domain.Tag {
	var out []domain.Tag
	for _, n := range names {
		found := false
		for _, t := range b.tags[ownerID] {
			if t.Name == n {
				out = append(out, t)
				found = true
			}
		}
		if !found {
			t := domain.Tag{ID: b.nextID("t"), OwnerID: ownerID, Name: n}
			b.tags[ownerID] = append(b.tags[ownerID], t)
			out = append(out, t)
		}
	}
	return out
}

func (b *stubBackend) CreateReferral(_ context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return domain.Referral{}, b.writeErr
	}
	if len(b.referrals[ownerID]) >= b.profiles[ownerID].MaxReferrals {
		return domain.Referral{}, domain.ClassifyRemoteMessage("Referral limit reached")
	}
	r := domain.Referral{ID: b.nextID("r"), OwnerID: ownerID, Title: in.Title, URL: in.URL, Tags: b.upsertTags(ownerID, in.TagNames)}
	b.referrals[ownerID] = append([]domain.Referral{r}, b.referrals[ownerID]...)
	return r, nil
}

func (b *stubBackend) UpdateReferral(_ context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return domain.Referral{}, b.writeErr
	}
	for i, r := range b.referrals[ownerID] {
		if r.ID == id {
			r.Title, r.URL, r.Tags = in.Title, in.URL, b.upsertTags(ownerID, in.TagNames)
			b.referrals[ownerID][i] = r
			return r, nil
		}
	}
	return domain.Referral{}, domain.ErrReferralNotFound
}

func (b *stubBackend) DeleteReferral(_ context.Context, id, ownerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	refs := b.referrals[ownerID]
	for i, r := range refs {
		if r.ID == id {
			b.referrals[ownerID] = append(refs[:i:i], refs[i+1:]...)
			return nil
		}
	}
	return domain.ErrReferralNotFound
}

func (b *stubBackend) ListTags(_ context.Context, ownerID string) ([]domain.Tag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Tag(nil), b.tags[ownerID]...), nil
}

func (b *stubBackend) ManageTag(_ context.Context, ownerID, name string) (domain.Tag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tags[ownerID]) >= b.profiles[ownerID].MaxTags {
		return domain.Tag{}, domain.ClassifyRemoteMessage("Tag limit reached")
	}
	return b.upsertTags(ownerID, []string{name})[0], nil
}

func (b *stubBackend) DeleteTag(_ context.Context, id, ownerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteTagErr != nil {
		return b.deleteTagErr
	}
	for _, r := range b.referrals[ownerID] {
		if r.HasTagID(id) {
			return domain.ClassifyRemoteMessage("Tag is in use by 1 referral(s)")
		}
	}
	tags := b.tags[ownerID]
	for i, t := range tags {
		if t.ID == id {
			b.tags[ownerID] = append(tags[:i:i], tags[i+1:]...)
			return nil
		}
	}
	return domain.ErrTagNotFound
}

func (b *stubBackend) AdminListProfiles(_ context.Context, query string) ([]domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Profile
	for _, p := range b.profiles {
		if strings.Contains(p.Username, query) || strings.Contains(p.Email, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *stubBackend) UpdateUserTier(_ context.Context, profileID string, tier domain.Tier, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tierCalls = append(b.tierCalls, profileID+":"+string(tier)+":"+reason)
	p, ok := b.profiles[profileID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	domain.ApplyTier(&p, tier)
	b.profiles[profileID] = p
	return nil
}

func (b *stubBackend) Ping(context.Context) error { return nil }
