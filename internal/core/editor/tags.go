package editor

import (
	"context"
	"slices"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/quota"
)

// TagStore is the part of the backend the tag manager calls.
type TagStore interface {
	ManageTag(ctx context.Context, ownerID, name string) (domain.Tag, error)
	DeleteTag(ctx context.Context, id, ownerID string) error
}

// TagManager keeps the owner's local tag list in step with the backend.
type TagManager struct {
	ownerID string
	store   TagStore
	tags    []domain.Tag
	confirm *Confirmations
}

func NewTagManager(ownerID string, store TagStore, tags []domain.Tag) *TagManager {
	m := &TagManager{ownerID: ownerID, store: store, confirm: NewConfirmations()}
	m.SetTags(tags)
	return m
}

// Tags returns a copy of the local list, sorted by name.
func (m *TagManager) Tags() []domain.Tag { return slices.Clone(m.tags) }

func (m *TagManager) SetTags(tags []domain.Tag) {
	m.tags = slices.Clone(tags)
	domain.SortTags(m.tags)
}

func (m *TagManager) Confirmations() *Confirmations { return m.confirm }

// Add upserts name. An existing tag is returned as is; a new one is checked
// against v first, though the backend has the final word on the quota.
func (m *TagManager) Add(ctx context.Context, name string, v quota.View) (domain.Tag, error) {
	name = domain.NormalizeTagName(name)
	if name == "" {
		return domain.Tag{}, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "name", Message: "Tag name is required"},
		}}
	}
	if i := m.indexByName(name); i >= 0 {
		return m.tags[i], nil
	}
	if err := quota.Gate(quota.Tags, v); err != nil {
		return domain.Tag{}, err
	}

	tag, err := m.store.ManageTag(ctx, m.ownerID, name)
	if err != nil {
		return domain.Tag{}, err
	}
	if i := m.indexByID(tag.ID); i >= 0 {
		m.tags[i] = tag
	} else {
		m.tags = append(m.tags, tag)
	}
	domain.SortTags(m.tags)
	return tag, nil
}

// Delete removes tag id once its confirmation was armed. On failure the tag
// stays in the local list.
func (m *TagManager) Delete(ctx context.Context, id string) error {
	if m.indexByID(id) < 0 {
		return domain.ErrTagNotFound
	}
	if err := m.confirm.Confirm(id); err != nil {
		return err
	}
	if err := m.store.DeleteTag(ctx, id, m.ownerID); err != nil {
		return err
	}
	if i := m.indexByID(id); i >= 0 {
		m.tags = slices.Delete(m.tags, i, i+1)
	}
	return nil
}

func (m *TagManager) indexByID(id string) int {
	return slices.IndexFunc(m.tags, func(t domain.Tag) bool { return t.ID == id })
}

func (m *TagManager) indexByName(name string) int {
	return slices.IndexFunc(m.tags, func(t domain.Tag) bool { return t.Name == name })
}
