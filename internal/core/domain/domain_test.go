package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeColors_WithDefaults(t *testing.T) {
	got := ThemeColors{Primary: "#000000"}.WithDefaults()
	assert.Equal(t, ThemeColors{
		Primary:   "#000000",
		Secondary: DefaultSecondaryColor,
		Body:      DefaultBodyColor,
		Card:      DefaultCardColor,
	}, got)
}

func TestThemeColors_ValidateNamesEveryBadField(t *testing.T) {
	theme := DefaultTheme().With(FieldPrimary, "#12345").With(FieldCard, "white")

	err := theme.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.Has("primary"))
	assert.True(t, ve.Has("card"))
	assert.False(t, ve.Has("body"))
}

func TestIsColorHex(t *testing.T) {
	assert.True(t, IsColorHex("#7b68ee"))
	assert.True(t, IsColorHex("#ABCDEF"))
	assert.False(t, IsColorHex("#fff"))
	assert.False(t, IsColorHex("7b68ee"))
	assert.False(t, IsColorHex("#7b68eg"))
	assert.False(t, IsColorHex("#7b68ee0"))
}

func TestApplyTier_IsIdempotent(t *testing.T) {
	p := &Profile{Tier: TierBasic, MaxReferrals: 10, MaxTags: 5}

	ApplyTier(p, TierPremium)
	first := *p
	ApplyTier(p, TierPremium)

	assert.Equal(t, first, *p)
	assert.Equal(t, 100, p.MaxReferrals)
	assert.Equal(t, 50, p.MaxTags)
}

func TestApplyTier_ReplacesCustomMaxima(t *testing.T) {
	p := &Profile{Tier: TierBasic, MaxReferrals: 37, MaxTags: 3}
	ApplyTier(p, TierPremium)
	assert.Equal(t, PlanFor(TierPremium), Plan{MaxReferrals: p.MaxReferrals, MaxTags: p.MaxTags})
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice_01"))
	assert.ErrorIs(t, ValidateUsername("al"), ErrValidation)
	assert.ErrorIs(t, ValidateUsername("alice smith"), ErrValidation)
	assert.ErrorIs(t, ValidateUsername("alice-smith"), ErrValidation)
}

func TestNormalizeTagNames(t *testing.T) {
	got := NormalizeTagNames([]string{" Crypto ", "crypto", "", "Travel"})
	assert.Equal(t, []string{"crypto", "travel"}, got)
}

func TestFilterReferrals(t *testing.T) {
	refs := []Referral{
		{Title: "Ledger wallet", Tags: []Tag{{Name: "crypto"}}},
		{Title: "Airbnb", Description: "Travel credit", Tags: []Tag{{Name: "travel"}}},
		{Title: "Coinbase", Tags: []Tag{{Name: "crypto"}, {Name: "finance"}}},
	}

	assert.Len(t, FilterReferrals(refs, "", ""), 3)
	assert.Len(t, FilterReferrals(refs, "TRAVEL", ""), 1)
	assert.Len(t, FilterReferrals(refs, "", "crypto"), 2)
	assert.Len(t, FilterReferrals(refs, "coin", "crypto"), 1)
	assert.Empty(t, FilterReferrals(refs, "airbnb", "crypto"))
	assert.Equal(t, []string{"crypto", "finance", "travel"}, DistinctTagNames(refs))
}

func TestClassifyRemoteMessage(t *testing.T) {
	assert.True(t, IsConflict(ClassifyRemoteMessage("Tag is in use by 2 referrals"), ConflictTagInUse))
	assert.True(t, IsConflict(ClassifyRemoteMessage("Tag limit reached for tier basic"), ConflictTagLimit))
	assert.True(t, IsConflict(ClassifyRemoteMessage(`duplicate key value violates unique constraint "profiles_username_key"`), ConflictUsernameTaken))
	assert.ErrorIs(t, ClassifyRemoteMessage("Referral not found"), ErrReferralNotFound)
	assert.Nil(t, ClassifyRemoteMessage("connection reset by peer"))
}

func TestRemoteError_IsRemoteNotConflict(t *testing.T) {
	err := error(&RemoteError{Op: "delete_tag", Err: errors.New("timeout")})
	assert.ErrorIs(t, err, ErrRemote)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestPublicProfile_FilterKeepsTagChips(t *testing.T) {
	p := Profile{ID: "p1", Username: "alice", Email: "a@example.com"}
	refs := []Referral{
		{ID: "1", Title: "Bank", Tags: []Tag{{Name: "finance"}}},
		{ID: "2", Title: "Hotel", Tags: []Tag{{Name: "travel"}}},
	}

	pp := NewPublicProfile(p, refs).Filter("", "Travel")
	assert.Len(t, pp.Referrals, 1)
	assert.Equal(t, "2", pp.Referrals[0].ID)
	assert.Equal(t, []string{"finance", "travel"}, pp.Tags)
	assert.Equal(t, DefaultBio, pp.Bio)
	assert.Equal(t, DefaultTheme(), pp.Theme)
}
