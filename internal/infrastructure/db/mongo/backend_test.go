package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Every test runs against a mocked deployment: responses are queued in the
// order the backend issues its commands.

func newMockBackend(mt *mtest.T) *Backend {
	b := NewBackend(mt.DB)
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	b.newID = func() string { return "new-id" }
	return b
}

func asDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func found(ns string, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, docs...)
}

func counted(ns string, n int) bson.D {
	if n == 0 {
		return found(ns)
	}
	return found(ns, bson.D{{Key: "n", Value: n}})
}

func profileResponse(t *testing.T, maxReferrals, maxTags int) bson.D {
	return found("easyref.profiles", asDoc(t, profileDoc{
		ID:           "p1",
		PrivyID:      "did:privy:1",
		Username:     "alice",
		Tier:         string(domain.TierBasic),
		MaxReferrals: maxReferrals,
		MaxTags:      maxTags,
	}))
}

func TestDeleteTag(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("in use", func(mt *mtest.T) {
		mt.AddMockResponses(counted("easyref.referrals", 2))

		err := newMockBackend(mt).DeleteTag(context.Background(), "t1", "p1")
		var dc *domain.DomainConflict
		require.True(mt, errors.As(err, &dc))
		assert.Equal(mt, domain.ConflictTagInUse, dc.Kind)
		assert.Contains(mt, dc.Message, "in use by 2 referral(s)")
	})

	mt.Run("unused", func(mt *mtest.T) {
		mt.AddMockResponses(
			counted("easyref.referrals", 0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		assert.NoError(mt, newMockBackend(mt).DeleteTag(context.Background(), "t1", "p1"))
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(
			counted("easyref.referrals", 0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		err := newMockBackend(mt).DeleteTag(context.Background(), "t1", "p1")
		assert.ErrorIs(mt, err, domain.ErrTagNotFound)
	})
}

func TestCreateReferral_Quotas(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	in := domain.ReferralInput{Title: "Bank", URL: "https://bank.example/r/1", TagNames: []string{"Finance"}}

	mt.Run("referral limit", func(mt *mtest.T) {
		mt.AddMockResponses(
			profileResponse(mt.T, 1, 5),
			counted("easyref.referrals", 1),
		)
		_, err := newMockBackend(mt).CreateReferral(context.Background(), "p1", in)
		assert.True(mt, domain.IsConflict(err, domain.ConflictReferralLimit), "got %v", err)
	})

	mt.Run("tag limit", func(mt *mtest.T) {
		mt.AddMockResponses(
			profileResponse(mt.T, 10, 1),
			counted("easyref.referrals", 0),
			found("easyref.tags"),
			counted("easyref.tags", 1),
		)
		_, err := newMockBackend(mt).CreateReferral(context.Background(), "p1", in)
		assert.True(mt, domain.IsConflict(err, domain.ConflictTagLimit), "got %v", err)
	})

	mt.Run("unknown owner", func(mt *mtest.T) {
		mt.AddMockResponses(found("easyref.profiles"))
		_, err := newMockBackend(mt).CreateReferral(context.Background(), "nobody", in)
		assert.ErrorIs(mt, err, domain.ErrProfileNotFound)
	})
}

func TestManageTag(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("existing name ignores quota", func(mt *mtest.T) {
		mt.AddMockResponses(
			profileResponse(mt.T, 10, 1),
			found("easyref.tags", asDoc(mt.T, tagDoc{ID: "t1", UserID: "p1", Name: "finance"})),
		)
		tag, err := newMockBackend(mt).ManageTag(context.Background(), "p1", "  Finance ")
		require.NoError(mt, err)
		assert.Equal(mt, "t1", tag.ID)
		assert.Equal(mt, "finance", tag.Name)
	})

	mt.Run("new name past quota", func(mt *mtest.T) {
		mt.AddMockResponses(
			profileResponse(mt.T, 10, 2),
			found("easyref.tags"),
			counted("easyref.tags", 2),
		)
		_, err := newMockBackend(mt).ManageTag(context.Background(), "p1", "travel")
		assert.True(mt, domain.IsConflict(err, domain.ConflictTagLimit), "got %v", err)
	})

	mt.Run("new name under quota", func(mt *mtest.T) {
		mt.AddMockResponses(
			profileResponse(mt.T, 10, 2),
			found("easyref.tags"),
			counted("easyref.tags", 1),
			mtest.CreateSuccessResponse(),
		)
		tag, err := newMockBackend(mt).ManageTag(context.Background(), "p1", "Travel")
		require.NoError(mt, err)
		assert.Equal(mt, "new-id", tag.ID)
		assert.Equal(mt, "travel", tag.Name)
	})

	mt.Run("blank name", func(mt *mtest.T) {
		_, err := newMockBackend(mt).ManageTag(context.Background(), "p1", "   ")
		var ve *domain.ValidationError
		assert.True(mt, errors.As(err, &ve))
	})
}

func TestClaimUsername_Duplicates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	in := domain.NewProfile{PrivyID: "did:privy:1", Username: "alice"}

	cases := []struct {
		name  string
		index string
		want  domain.ConflictKind
	}{
		{"username", "profiles_username_key", domain.ConflictUsernameTaken},
		{"account", "profiles_privy_id_key", domain.ConflictProfileExists},
	}
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: easyref.profiles index: " + tc.index,
			}))
			_, err := newMockBackend(mt).ClaimUsername(context.Background(), in)
			assert.True(mt, domain.IsConflict(err, tc.want), "got %v", err)
		})
	}
}

func TestUsernameAvailable(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("taken", func(mt *mtest.T) {
		mt.AddMockResponses(counted("easyref.profiles", 1))
		ok, err := newMockBackend(mt).UsernameAvailable(context.Background(), "alice")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("free", func(mt *mtest.T) {
		mt.AddMockResponses(counted("easyref.profiles", 0))
		ok, err := newMockBackend(mt).UsernameAvailable(context.Background(), "bob")
		require.NoError(mt, err)
		assert.True(mt, ok)
	})
}
