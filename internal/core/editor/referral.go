// Package editor implements the modal create/edit cycle for referrals and
// tags against the remote procedure surface.
package editor

import (
	"context"
	"sync/atomic"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/quota"
)

// ReferralStore is the part of the backend the referral editor calls.
type ReferralStore interface {
	CreateReferral(ctx context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error)
	UpdateReferral(ctx context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error)
	DeleteReferral(ctx context.Context, id, ownerID string) error
	ListReferrals(ctx context.Context, ownerID string) ([]domain.Referral, error)
}

// Mode is the state of the referral modal.
type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	}
	return "closed"
}

// ReferralEditor drives one referral modal. Only one form is open at a time.
type ReferralEditor struct {
	ownerID string
	store   ReferralStore

	mode      Mode
	editingID string
	form      Form

	submitting atomic.Bool
	confirm    *Confirmations
}

func NewReferralEditor(ownerID string, store ReferralStore) *ReferralEditor {
	return &ReferralEditor{
		ownerID: ownerID,
		store:   store,
		confirm: NewConfirmations(),
	}
}

func (e *ReferralEditor) Mode() Mode { return e.mode }

// EditingID is the referral being edited, empty unless Mode is Editing.
func (e *ReferralEditor) EditingID() string { return e.editingID }

func (e *ReferralEditor) Form() Form { return e.form }

// Confirmations exposes the two-step delete state.
func (e *ReferralEditor) Confirmations() *Confirmations { return e.confirm }

// Submitting reports whether a submit is outstanding.
func (e *ReferralEditor) Submitting() bool { return e.submitting.Load() }

// OpenCreate opens an empty form unless the referral quota is exhausted.
func (e *ReferralEditor) OpenCreate(v quota.View) error {
	if err := quota.Gate(quota.Referrals, v); err != nil {
		return err
	}
	e.mode = Creating
	e.editingID = ""
	e.form = Form{}
	return nil
}

// OpenEdit opens the form pre-populated from r.
func (e *ReferralEditor) OpenEdit(r domain.Referral) {
	e.mode = Editing
	e.editingID = r.ID
	e.form = FormFrom(r)
}

// SetForm replaces the form fields of the open modal.
func (e *ReferralEditor) SetForm(f Form) error {
	if e.mode == Closed {
		return domain.ErrEditorClosed
	}
	e.form = f
	return nil
}

func (e *ReferralEditor) Close() {
	e.mode = Closed
	e.editingID = ""
	e.form = Form{}
}

// Submit validates the form, performs one create or update call carrying
// the referral and its tag names together, then re-fetches the full list.
// The modal closes once the write succeeded.
func (e *ReferralEditor) Submit(ctx context.Context) (domain.Referral, []domain.Referral, error) {
	if e.mode == Closed {
		return domain.Referral{}, nil, domain.ErrEditorClosed
	}
	if !e.submitting.CompareAndSwap(false, true) {
		return domain.Referral{}, nil, domain.ErrSubmitInFlight
	}
	defer e.submitting.Store(false)

	if err := Validate(e.form); err != nil {
		return domain.Referral{}, nil, err
	}
	in := e.form.Normalized().Input()

	var (
		saved domain.Referral
		err   error
	)
	if e.mode == Creating {
		saved, err = e.store.CreateReferral(ctx, e.ownerID, in)
	} else {
		saved, err = e.store.UpdateReferral(ctx, e.editingID, e.ownerID, in)
	}
	if err != nil {
		return domain.Referral{}, nil, err
	}
	e.Close()

	list, err := e.store.ListReferrals(ctx, e.ownerID)
	if err != nil {
		return saved, nil, err
	}
	return saved, list, nil
}

// Delete removes id after its confirmation was armed and re-fetches the list.
func (e *ReferralEditor) Delete(ctx context.Context, id string) ([]domain.Referral, error) {
	if err := e.confirm.Confirm(id); err != nil {
		return nil, err
	}
	if err := e.store.DeleteReferral(ctx, id, e.ownerID); err != nil {
		return nil, err
	}
	if e.editingID == id {
		e.Close()
	}
	return e.store.ListReferrals(ctx, e.ownerID)
}
