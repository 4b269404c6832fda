package service

import (
	"context"
	"slices"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/editor"
	"github.com/easyref/easyref-api/internal/core/quota"
	"github.com/easyref/easyref-api/internal/core/theme"
)

func (w *Workspace) commitTheme(ctx context.Context, colors domain.ThemeColors) error {
	p, err := w.backend.UpdateProfile(ctx, w.id, domain.ProfileUpdate{Theme: &colors})
	if err != nil {
		return err
	}
	w.savedProfile = &p
	return nil
}

// SetThemeField edits one color of the draft. The preview follows at once.
func (w *Workspace) SetThemeField(field domain.ThemeField, value string) (theme.State, error) {
	if err := w.begin(); err != nil {
		return theme.State{}, err
	}
	defer w.end()
	w.theme.SetField(field, value)
	return w.theme.State(), nil
}

// SaveTheme commits the draft colors in one round trip.
func (w *Workspace) SaveTheme(ctx context.Context) (theme.State, error) {
	if err := w.begin(); err != nil {
		return theme.State{}, err
	}
	defer w.end()
	w.savedProfile = nil
	if err := w.theme.Save(ctx); err != nil {
		return w.theme.State(), err
	}
	if w.savedProfile != nil {
		w.dispatch(SetProfile{*w.savedProfile})
	}
	w.committed(ctx)
	return w.theme.State(), nil
}

// ResetTheme reverts the draft and notifies the reset observer.
func (w *Workspace) ResetTheme() (theme.State, error) {
	if err := w.begin(); err != nil {
		return theme.State{}, err
	}
	defer w.end()
	w.theme.Reset()
	return w.theme.State(), nil
}

// CancelTheme reverts the draft silently.
func (w *Workspace) CancelTheme() (theme.State, error) {
	if err := w.begin(); err != nil {
		return theme.State{}, err
	}
	defer w.end()
	w.theme.Cancel()
	return w.theme.State(), nil
}

// UpdateSettings applies a partial profile update. Colors are only saved
// through the theme draft.
func (w *Workspace) UpdateSettings(ctx context.Context, upd domain.ProfileUpdate) (domain.Profile, error) {
	if upd.Theme != nil {
		return domain.Profile{}, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "theme", Message: "Colors are saved through the theme editor"},
		}}
	}
	if err := w.begin(); err != nil {
		return domain.Profile{}, err
	}
	defer w.end()
	if upd.IsEmpty() {
		return w.profile, nil
	}

	p, err := w.backend.UpdateProfile(ctx, w.id, upd)
	if err != nil {
		return domain.Profile{}, err
	}
	w.dispatch(SetProfile{p})
	w.committed(ctx)
	return w.profile, nil
}

func (w *Workspace) referralQuota() quota.View {
	return quota.Evaluate(len(w.referrals), w.profile.MaxReferrals)
}

func (w *Workspace) tagQuota() quota.View {
	return quota.Evaluate(len(w.tags.Tags()), w.profile.MaxTags)
}

// CreateReferral runs a full create cycle of the referral editor.
func (w *Workspace) CreateReferral(ctx context.Context, f editor.Form) (domain.Referral, error) {
	if err := w.begin(); err != nil {
		return domain.Referral{}, err
	}
	defer w.end()

	if err := w.editor.OpenCreate(w.referralQuota()); err != nil {
		return domain.Referral{}, err
	}
	return w.submit(ctx, f)
}

// UpdateReferral runs a full edit cycle for referral id.
func (w *Workspace) UpdateReferral(ctx context.Context, id string, f editor.Form) (domain.Referral, error) {
	if err := w.begin(); err != nil {
		return domain.Referral{}, err
	}
	defer w.end()

	i := slices.IndexFunc(w.referrals, func(r domain.Referral) bool { return r.ID == id })
	if i < 0 {
		return domain.Referral{}, domain.ErrReferralNotFound
	}
	w.editor.OpenEdit(w.referrals[i])
	return w.submit(ctx, f)
}

func (w *Workspace) submit(ctx context.Context, f editor.Form) (domain.Referral, error) {
	if err := w.editor.SetForm(f); err != nil {
		return domain.Referral{}, err
	}
	saved, refs, err := w.editor.Submit(ctx)
	if err != nil {
		return saved, err
	}
	w.dispatch(SetReferrals{refs})
	w.committed(ctx)

	// create_referral and update_referral may have created tags.
	tags, err := w.backend.ListTags(ctx, w.id)
	if err != nil {
		return saved, err
	}
	w.dispatch(SetTags{tags})
	return saved, nil
}

// RequestReferralDelete arms the delete of referral id.
func (w *Workspace) RequestReferralDelete(id string) error {
	if !slices.ContainsFunc(w.Snapshot().Referrals, func(r domain.Referral) bool { return r.ID == id }) {
		return domain.ErrReferralNotFound
	}
	w.editor.Confirmations().Request(id)
	return nil
}

func (w *Workspace) DismissReferralDelete(id string) {
	w.editor.Confirmations().Dismiss(id)
}

// DeleteReferral removes an armed referral and re-fetches the lists.
func (w *Workspace) DeleteReferral(ctx context.Context, id string) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	refs, err := w.editor.Delete(ctx, id)
	if err != nil {
		return err
	}
	w.dispatch(SetReferrals{refs})
	w.committed(ctx)

	tags, err := w.backend.ListTags(ctx, w.id)
	if err != nil {
		return err
	}
	w.dispatch(SetTags{tags})
	return nil
}

// AddTag upserts a tag by name.
func (w *Workspace) AddTag(ctx context.Context, name string) (domain.Tag, error) {
	if err := w.begin(); err != nil {
		return domain.Tag{}, err
	}
	defer w.end()
	return w.tags.Add(ctx, name, w.tagQuota())
}

// RequestTagDelete arms the delete of tag id.
func (w *Workspace) RequestTagDelete(id string) error {
	if !slices.ContainsFunc(w.Snapshot().Tags, func(t domain.Tag) bool { return t.ID == id }) {
		return domain.ErrTagNotFound
	}
	w.tags.Confirmations().Request(id)
	return nil
}

func (w *Workspace) DismissTagDelete(id string) {
	w.tags.Confirmations().Dismiss(id)
}

// DeleteTag removes an armed tag. A tag still used by referrals stays and
// the call fails with DomainConflict{tag_in_use}.
func (w *Workspace) DeleteTag(ctx context.Context, id string) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	if err := w.tags.Delete(ctx, id); err != nil {
		return err
	}
	w.committed(ctx)
	return nil
}
