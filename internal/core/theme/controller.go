// Package theme holds the color draft controller of a public profile page.
//
// The controller keeps an uncommitted draft of the four theme colors next to
// the last committed baseline. Edits repaint the page through the preview
// callback immediately; only Save reaches the store.
package theme

import (
	"context"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Committer persists a theme. It is called once per Save.
type Committer interface {
	CommitTheme(ctx context.Context, colors domain.ThemeColors) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, colors domain.ThemeColors) error

func (f CommitFunc) CommitTheme(ctx context.Context, colors domain.ThemeColors) error {
	return f(ctx, colors)
}

// Policy decides what a background baseline change does to pending edits.
type Policy int

const (
	// PreserveEdits keeps a dirty draft when the committed colors change
	// upstream and only follows the new baseline when nothing was edited.
	PreserveEdits Policy = iota
	// DiscardEdits always adopts the new baseline and clears the draft.
	DiscardEdits
)

// State is a snapshot of the controller.
type State struct {
	Draft    domain.ThemeColors `json:"draft"`
	Baseline domain.ThemeColors `json:"baseline"`
	IsDirty  bool               `json:"is_dirty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithPreview registers the live preview callback.
func WithPreview(fn func(domain.ThemeColors)) Option {
	return func(c *Controller) { c.preview = fn }
}

// WithResetHook registers the callback fired by Reset and never by Cancel.
func WithResetHook(fn func(domain.ThemeColors)) Option {
	return func(c *Controller) { c.onReset = fn }
}

// WithPolicy overrides the baseline reconciliation policy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// Controller is not safe for concurrent use; callers serialize access.
type Controller struct {
	committer Committer
	preview   func(domain.ThemeColors)
	onReset   func(domain.ThemeColors)
	policy    Policy

	draft    domain.ThemeColors
	baseline domain.ThemeColors
	dirty    bool
}

// NewController returns a controller whose draft and baseline are committed.
func NewController(committed domain.ThemeColors, committer Committer, opts ...Option) *Controller {
	c := &Controller{committer: committer}
	for _, opt := range opts {
		opt(c)
	}
	c.Initialize(committed)
	return c
}

// Initialize sets draft and baseline to committed and clears the dirty flag.
func (c *Controller) Initialize(committed domain.ThemeColors) {
	committed = committed.WithDefaults()
	c.draft = committed
	c.baseline = committed
	c.dirty = false
}

// State returns the current draft, baseline and dirty flag.
func (c *Controller) State() State {
	return State{Draft: c.draft, Baseline: c.baseline, IsDirty: c.dirty}
}

// OnExternalBaselineChange reconciles a committed value observed upstream,
// e.g. after the profile was fetched again.
//
// When newCommitted equals the current baseline the draft is reset to it.
// Otherwise the baseline is replaced; under PreserveEdits a dirty draft is
// kept as is, a clean one follows the new baseline.
func (c *Controller) OnExternalBaselineChange(newCommitted domain.ThemeColors) {
	newCommitted = newCommitted.WithDefaults()

	if newCommitted.Equal(c.baseline) || c.policy == DiscardEdits {
		c.Initialize(newCommitted)
		return
	}

	c.baseline = newCommitted
	if !c.dirty {
		c.draft = newCommitted
	}
	c.recompute()
}

// SetField writes value into the draft and repaints the preview. Malformed
// values are accepted here and rejected by Save.
func (c *Controller) SetField(field domain.ThemeField, value string) {
	c.draft = c.draft.With(field, value)
	c.recompute()
	c.emitPreview(c.draft)
}

// Save commits the draft in one round trip. On failure draft and baseline
// are left untouched so the edit is not lost.
func (c *Controller) Save(ctx context.Context) error {
	if err := c.draft.Validate(); err != nil {
		return err
	}
	pending := c.draft
	if err := c.committer.CommitTheme(ctx, pending); err != nil {
		return err
	}
	c.baseline = pending
	c.recompute()
	return nil
}

// Reset reverts the draft to the baseline and notifies the reset hook.
func (c *Controller) Reset() {
	c.revert()
	if c.onReset != nil {
		c.onReset(c.baseline)
	}
}

// Cancel reverts the draft to the baseline without notifying anyone but the
// preview.
func (c *Controller) Cancel() {
	c.revert()
}

func (c *Controller) revert() {
	c.draft = c.baseline
	c.dirty = false
	c.emitPreview(c.baseline)
}

func (c *Controller) recompute() {
	c.dirty = !c.draft.Equal(c.baseline)
}

func (c *Controller) emitPreview(colors domain.ThemeColors) {
	if c.preview != nil {
		c.preview(colors)
	}
}
