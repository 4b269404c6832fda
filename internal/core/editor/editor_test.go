package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/quota"
)

type stubStore struct {
	creates  []domain.ReferralInput
	updates  []string
	deletes  []string
	lists    int
	refs     []domain.Referral
	writeErr error

	tagCalls   []string
	tagDeletes []string
	tagErr     error

	// block, when set, holds CreateReferral until released.
	block   chan struct{}
	entered chan struct{}
}

func (s *stubStore) CreateReferral(_ context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	if s.block != nil {
		close(s.entered)
		<-s.block
	}
	s.creates = append(s.creates, in)
	if s.writeErr != nil {
		return domain.Referral{}, s.writeErr
	}
	r := domain.Referral{ID: "r-new", OwnerID: ownerID, Title: in.Title, URL: in.URL}
	s.refs = append([]domain.Referral{r}, s.refs...)
	return r, nil
}

func (s *stubStore) UpdateReferral(_ context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	s.updates = append(s.updates, id)
	if s.writeErr != nil {
		return domain.Referral{}, s.writeErr
	}
	return domain.Referral{ID: id, OwnerID: ownerID, Title: in.Title, URL: in.URL}, nil
}

func (s *stubStore) DeleteReferral(_ context.Context, id, _ string) error {
	s.deletes = append(s.deletes, id)
	return s.writeErr
}

func (s *stubStore) ListReferrals(context.Context, string) ([]domain.Referral, error) {
	s.lists++
	return s.refs, nil
}

func (s *stubStore) ManageTag(_ context.Context, ownerID, name string) (domain.Tag, error) {
	s.tagCalls = append(s.tagCalls, name)
	if s.tagErr != nil {
		return domain.Tag{}, s.tagErr
	}
	return domain.Tag{ID: "t-" + name, OwnerID: ownerID, Name: name}, nil
}

func (s *stubStore) DeleteTag(_ context.Context, id, _ string) error {
	s.tagDeletes = append(s.tagDeletes, id)
	return s.tagErr
}

func validForm() Form {
	return Form{Title: "My bank", URL: "https://bank.example/ref/abc", TagNames: []string{"Finance"}}
}

func TestValidate_CollectsEveryError(t *testing.T) {
	err := Validate(Form{Title: "  ", URL: "not a url"})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 3)
	assert.True(t, verr.Has("title"))
	assert.True(t, verr.Has("url"))
	assert.True(t, verr.Has("tags"))
}

func TestValidate_TitleAndURLAreIndependent(t *testing.T) {
	f := validForm()
	f.Title = ""
	f.URL = "/relative/path"

	var verr *domain.ValidationError
	require.True(t, errors.As(Validate(f), &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestValidate_OptionalImageMustBeAbsolute(t *testing.T) {
	f := validForm()
	assert.NoError(t, Validate(f))

	f.ImageURL = "logo.png"
	var verr *domain.ValidationError
	require.True(t, errors.As(Validate(f), &verr))
	assert.True(t, verr.Has("image_url"))
}

func TestReferralEditor_OpenCreateRespectsQuota(t *testing.T) {
	e := NewReferralEditor("p1", &stubStore{})

	err := e.OpenCreate(quota.Evaluate(10, 10))
	assert.True(t, domain.IsConflict(err, domain.ConflictReferralLimit))
	assert.Equal(t, Closed, e.Mode())

	require.NoError(t, e.OpenCreate(quota.Evaluate(9, 10)))
	assert.Equal(t, Creating, e.Mode())
	assert.Equal(t, Form{}, e.Form())
}

func TestReferralEditor_OpenEditPrepopulates(t *testing.T) {
	e := NewReferralEditor("p1", &stubStore{})
	ref := domain.Referral{
		ID: "r1", Title: "Card", URL: "https://card.example", Subtitle: "$50 bonus",
		Tags: []domain.Tag{{ID: "t1", Name: "finance"}},
	}
	e.OpenEdit(ref)

	assert.Equal(t, Editing, e.Mode())
	assert.Equal(t, "r1", e.EditingID())
	assert.Equal(t, "Card", e.Form().Title)
	assert.Equal(t, "$50 bonus", e.Form().Subtitle)
	assert.Equal(t, []string{"finance"}, e.Form().TagNames)
}

func TestReferralEditor_SubmitCreatesOnceAndRefetches(t *testing.T) {
	store := &stubStore{}
	e := NewReferralEditor("p1", store)
	require.NoError(t, e.OpenCreate(quota.Evaluate(0, 10)))
	require.NoError(t, e.SetForm(validForm()))

	saved, list, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r-new", saved.ID)
	assert.Len(t, list, 1)
	require.Len(t, store.creates, 1)
	assert.Equal(t, []string{"finance"}, store.creates[0].TagNames)
	assert.Equal(t, 1, store.lists)
	assert.Equal(t, Closed, e.Mode())
}

func TestReferralEditor_SubmitUpdate(t *testing.T) {
	store := &stubStore{}
	e := NewReferralEditor("p1", store)
	e.OpenEdit(domain.Referral{ID: "r1", Title: "Old", URL: "https://old.example", Tags: []domain.Tag{{Name: "x"}}})

	_, _, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, store.updates)
	assert.Empty(t, store.creates)
}

func TestReferralEditor_ValidationBlocksRemoteCall(t *testing.T) {
	store := &stubStore{}
	e := NewReferralEditor("p1", store)
	require.NoError(t, e.OpenCreate(quota.Evaluate(0, 10)))

	_, _, err := e.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, store.creates)
	assert.Equal(t, Creating, e.Mode())
}

func TestReferralEditor_FailedSubmitKeepsFormOpen(t *testing.T) {
	store := &stubStore{writeErr: &domain.RemoteError{Op: "create_referral", Err: errors.New("timeout")}}
	e := NewReferralEditor("p1", store)
	require.NoError(t, e.OpenCreate(quota.Evaluate(0, 10)))
	require.NoError(t, e.SetForm(validForm()))

	_, _, err := e.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.Equal(t, Creating, e.Mode())
	assert.Equal(t, "My bank", e.Form().Title)
	assert.Equal(t, 0, store.lists)
	assert.False(t, e.Submitting())
}

func TestReferralEditor_SecondSubmitWhileInFlight(t *testing.T) {
	store := &stubStore{block: make(chan struct{}), entered: make(chan struct{})}
	e := NewReferralEditor("p1", store)
	require.NoError(t, e.OpenCreate(quota.Evaluate(0, 10)))
	require.NoError(t, e.SetForm(validForm()))

	done := make(chan error, 1)
	go func() {
		_, _, err := e.Submit(context.Background())
		done <- err
	}()
	<-store.entered

	assert.True(t, e.Submitting())
	_, _, err := e.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight)

	close(store.block)
	require.NoError(t, <-done)
	assert.Len(t, store.creates, 1)
}

func TestReferralEditor_SubmitOnClosedEditor(t *testing.T) {
	e := NewReferralEditor("p1", &stubStore{})
	_, _, err := e.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrEditorClosed)
	assert.ErrorIs(t, e.SetForm(validForm()), domain.ErrEditorClosed)
}

func TestReferralEditor_DeleteRequiresConfirmation(t *testing.T) {
	store := &stubStore{}
	e := NewReferralEditor("p1", store)

	_, err := e.Delete(context.Background(), "r1")
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)
	assert.Empty(t, store.deletes)

	e.Confirmations().Request("r1")
	e.Confirmations().Dismiss("r1")
	_, err = e.Delete(context.Background(), "r1")
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)

	e.Confirmations().Request("r1")
	_, err = e.Delete(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, store.deletes)
	assert.Equal(t, 1, store.lists)
	assert.False(t, e.Confirmations().Armed("r1"))
}

func TestTagManager_AddNormalizesAndSorts(t *testing.T) {
	store := &stubStore{}
	m := NewTagManager("p1", store, []domain.Tag{{ID: "t-zeta", Name: "zeta"}})

	tag, err := m.Add(context.Background(), "  Alpha ", quota.Evaluate(1, 5))
	require.NoError(t, err)
	assert.Equal(t, "alpha", tag.Name)
	assert.Equal(t, []string{"alpha"}, store.tagCalls)

	names := []string{}
	for _, tg := range m.Tags() {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestTagManager_AddExistingSkipsQuotaAndBackend(t *testing.T) {
	store := &stubStore{}
	m := NewTagManager("p1", store, []domain.Tag{{ID: "t1", Name: "travel"}})

	tag, err := m.Add(context.Background(), "TRAVEL", quota.Evaluate(5, 5))
	require.NoError(t, err)
	assert.Equal(t, "t1", tag.ID)
	assert.Empty(t, store.tagCalls)
}

func TestTagManager_AddAtLimit(t *testing.T) {
	store := &stubStore{}
	m := NewTagManager("p1", store, nil)

	_, err := m.Add(context.Background(), "new", quota.Evaluate(5, 5))
	assert.True(t, domain.IsConflict(err, domain.ConflictTagLimit))
	assert.Empty(t, store.tagCalls)

	_, err = m.Add(context.Background(), "   ", quota.Evaluate(0, 5))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTagManager_DeleteInUseKeepsTag(t *testing.T) {
	store := &stubStore{tagErr: domain.ClassifyRemoteMessage("Tag is in use by 2 referrals")}
	m := NewTagManager("p1", store, []domain.Tag{{ID: "t1", Name: "travel"}})

	m.Confirmations().Request("t1")
	err := m.Delete(context.Background(), "t1")

	assert.True(t, domain.IsConflict(err, domain.ConflictTagInUse))
	assert.False(t, errors.Is(err, domain.ErrRemote))
	assert.Len(t, m.Tags(), 1)
}

func TestTagManager_DeleteRemovesLocally(t *testing.T) {
	store := &stubStore{}
	m := NewTagManager("p1", store, []domain.Tag{{ID: "t1", Name: "travel"}, {ID: "t2", Name: "food"}})

	assert.ErrorIs(t, m.Delete(context.Background(), "t1"), domain.ErrConfirmationRequired)
	assert.Empty(t, store.tagDeletes)

	m.Confirmations().Request("t1")
	require.NoError(t, m.Delete(context.Background(), "t1"))
	require.Len(t, m.Tags(), 1)
	assert.Equal(t, "food", m.Tags()[0].Name)

	assert.ErrorIs(t, m.Delete(context.Background(), "missing"), domain.ErrTagNotFound)
}
