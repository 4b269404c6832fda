package service

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/editor"
	"github.com/easyref/easyref-api/internal/core/ports"
	"github.com/easyref/easyref-api/internal/core/quota"
	"github.com/easyref/easyref-api/internal/core/theme"
)

// Action is a typed state change of a Workspace.
type Action interface{ apply(w *Workspace) }

// SetProfile replaces the profile and, when its colors differ from the
// current ones, reconciles the theme baseline with them. Profiles older than
// the current one are ignored.
type SetProfile struct{ Profile domain.Profile }

// SetReferrals replaces the referral list.
type SetReferrals struct{ Referrals []domain.Referral }

// SetTags replaces the tag list.
type SetTags struct{ Tags []domain.Tag }

func (a SetProfile) apply(w *Workspace) {
	cur := w.profile
	if cur.ID != "" && !a.Profile.UpdatedAt.IsZero() && a.Profile.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	w.profile = a.Profile
	// Only an upstream color change reaches the controller; an unchanged
	// baseline would reset the owner's draft.
	if !a.Profile.Theme.WithDefaults().Equal(cur.Theme.WithDefaults()) {
		w.theme.OnExternalBaselineChange(a.Profile.Theme)
		w.preview = w.theme.State().Draft
	}
}

func (a SetReferrals) apply(w *Workspace) {
	w.referrals = slices.Clone(a.Referrals)
}

func (a SetTags) apply(w *Workspace) {
	w.tags.SetTags(a.Tags)
}

// Snapshot is an immutable view of a workspace, safe to read without locks.
type Snapshot struct {
	Profile   domain.Profile     `json:"profile"`
	Referrals []domain.Referral  `json:"referrals"`
	Tags      []domain.Tag       `json:"tags"`
	Theme     theme.State        `json:"theme"`
	Preview   domain.ThemeColors `json:"preview"`
	Quota     quota.Summary      `json:"quota"`
}

// Hooks are optional observers of workspace events.
type Hooks struct {
	// OnThemeReset fires when the owner explicitly resets the theme draft.
	OnThemeReset func(profileID string)
	// OnCommitted fires after every successful write to the backend.
	OnCommitted func(ctx context.Context, p domain.Profile)
}

// Workspace is the per-creator application state. Mutations are serialized;
// a mutation attempted while another one is outstanding fails with ErrBusy.
// Reads go through Snapshot and never block.
type Workspace struct {
	id      string
	backend ports.Backend
	hooks   Hooks

	mu     sync.Mutex
	loaded atomic.Bool

	profile   domain.Profile
	referrals []domain.Referral
	preview   domain.ThemeColors
	theme     *theme.Controller
	editor    *editor.ReferralEditor
	tags      *editor.TagManager

	// savedProfile is the profile returned by the last theme commit.
	savedProfile *domain.Profile

	snap     atomic.Pointer[Snapshot]
	lastUsed atomic.Int64
}

func newWorkspace(p domain.Profile, backend ports.Backend, policy theme.Policy, hooks Hooks) *Workspace {
	w := &Workspace{
		id:      p.ID,
		backend: backend,
		hooks:   hooks,
		profile: domain.Profile{ID: p.ID, Theme: p.Theme},
	}
	w.theme = theme.NewController(p.Theme, theme.CommitFunc(w.commitTheme),
		theme.WithPolicy(policy),
		theme.WithPreview(func(c domain.ThemeColors) { w.preview = c }),
		theme.WithResetHook(func(domain.ThemeColors) {
			if w.hooks.OnThemeReset != nil {
				w.hooks.OnThemeReset(w.id)
			}
		}),
	)
	w.preview = w.theme.State().Draft
	w.editor = editor.NewReferralEditor(p.ID, backend)
	w.tags = editor.NewTagManager(p.ID, backend, nil)
	w.publish()
	return w
}

// Snapshot returns the latest published state.
func (w *Workspace) Snapshot() Snapshot { return *w.snap.Load() }

func (w *Workspace) ProfileID() string { return w.id }

// Busy reports whether a mutation is outstanding.
func (w *Workspace) Busy() bool {
	if w.mu.TryLock() {
		w.mu.Unlock()
		return false
	}
	return true
}

func (w *Workspace) touch(now time.Time) { w.lastUsed.Store(now.UnixNano()) }

func (w *Workspace) idleSince() time.Time { return time.Unix(0, w.lastUsed.Load()) }

func (w *Workspace) begin() error {
	if !w.mu.TryLock() {
		return domain.ErrBusy
	}
	return nil
}

func (w *Workspace) end() {
	w.publish()
	w.mu.Unlock()
}

// Dispatch applies actions in order and publishes one snapshot.
func (w *Workspace) Dispatch(actions ...Action) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	w.dispatch(actions...)
	return nil
}

func (w *Workspace) dispatch(actions ...Action) {
	for _, a := range actions {
		a.apply(w)
	}
}

func (w *Workspace) publish() {
	tags := w.tags.Tags()
	w.snap.Store(&Snapshot{
		Profile:   w.profile,
		Referrals: slices.Clone(w.referrals),
		Tags:      tags,
		Theme:     w.theme.State(),
		Preview:   w.preview,
		Quota:     quota.Summarize(w.profile, len(w.referrals), len(tags)),
	})
}

// sync feeds a freshly fetched profile into the workspace, loading the
// referral and tag lists on first use. A busy workspace is left alone; the
// outstanding mutation publishes its own state.
func (w *Workspace) sync(ctx context.Context, p domain.Profile) error {
	if !w.loaded.Load() {
		w.mu.Lock()
		defer w.end()
		if !w.loaded.Load() {
			refs, err := w.backend.ListReferrals(ctx, p.ID)
			if err != nil {
				return err
			}
			tags, err := w.backend.ListTags(ctx, p.ID)
			if err != nil {
				return err
			}
			w.dispatch(SetReferrals{refs}, SetTags{tags})
			w.loaded.Store(true)
		}
		w.dispatch(SetProfile{p})
		return nil
	}
	if !w.mu.TryLock() {
		return nil
	}
	defer w.end()
	w.dispatch(SetProfile{p})
	return nil
}

// Refresh re-fetches profile, referrals and tags.
func (w *Workspace) Refresh(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	p, err := w.backend.GetProfileByID(ctx, w.id)
	if err != nil {
		return err
	}
	refs, err := w.backend.ListReferrals(ctx, p.ID)
	if err != nil {
		return err
	}
	tags, err := w.backend.ListTags(ctx, p.ID)
	if err != nil {
		return err
	}
	w.dispatch(SetProfile{p}, SetReferrals{refs}, SetTags{tags})
	return nil
}

func (w *Workspace) committed(ctx context.Context) {
	if w.hooks.OnCommitted != nil {
		w.hooks.OnCommitted(ctx, w.profile)
	}
}
