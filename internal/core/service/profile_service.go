package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

type ProfileService struct {
	backend ports.Backend
	cache   ports.ProfileCache
	log     zerolog.Logger
}

// NewProfileService returns a ProfileService. cache may be nil.
func NewProfileService(backend ports.Backend, cache ports.ProfileCache, log zerolog.Logger) *ProfileService {
	return &ProfileService{backend: backend, cache: cache, log: log}
}

// Resolve returns the profile of an authenticated identity.
func (s *ProfileService) Resolve(ctx context.Context, privyID string) (domain.Profile, error) {
	p, err := s.backend.GetProfileByPrivyID(ctx, privyID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("resolve profile: %w", err)
	}
	return p, nil
}

// UsernameAvailable is a hint for the claim form. Only Claim is authoritative.
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = domain.NormalizeUsername(username)
	if err := domain.ValidateUsername(username); err != nil {
		return false, err
	}
	return s.backend.UsernameAvailable(ctx, username)
}

// Claim creates the profile of privyID under username. It succeeds once per
// identity; the store decides uniqueness.
func (s *ProfileService) Claim(ctx context.Context, in domain.NewProfile) (domain.Profile, error) {
	in.Username = domain.NormalizeUsername(in.Username)
	if err := domain.ValidateUsername(in.Username); err != nil {
		return domain.Profile{}, err
	}

	_, err := s.backend.GetProfileByPrivyID(ctx, in.PrivyID)
	switch {
	case err == nil:
		return domain.Profile{}, domain.NewConflict(domain.ConflictProfileExists)
	case !errors.Is(err, domain.ErrProfileNotFound):
		return domain.Profile{}, fmt.Errorf("claim username: %w", err)
	}

	p, err := s.backend.ClaimUsername(ctx, in)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("claim username: %w", err)
	}
	s.log.Info().Str("profile_id", p.ID).Str("username", p.Username).Msg("username claimed")
	return p, nil
}

// Public returns the visitor view of username filtered by query and tag.
// The unfiltered view is cached.
func (s *ProfileService) Public(ctx context.Context, username, query, tag string) (domain.PublicProfile, error) {
	username = domain.NormalizeUsername(username)

	if s.cache != nil {
		pp, ok, err := s.cache.Get(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("profile cache read failed")
		} else if ok {
			return pp.Filter(query, tag), nil
		}
	}

	p, err := s.backend.GetProfileByUsername(ctx, username)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	refs, err := s.backend.ListReferrals(ctx, p.ID)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	pp := domain.NewPublicProfile(p, refs)

	if s.cache != nil {
		if err := s.cache.Set(ctx, username, pp); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("profile cache write failed")
		}
	}
	return pp.Filter(query, tag), nil
}

// PreviewProfile renders the owner's public page with the current draft colors.
func PreviewProfile(snap Snapshot, query, tag string) domain.PublicProfile {
	pp := domain.NewPublicProfile(snap.Profile, snap.Referrals)
	pp.Theme = snap.Preview
	return pp.Filter(query, tag)
}

// Invalidate drops the cached public view of p.
func (s *ProfileService) Invalidate(ctx context.Context, p domain.Profile) {
	if s.cache == nil || p.Username == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, p.Username); err != nil {
		s.log.Warn().Err(err).Str("username", p.Username).Msg("profile cache invalidation failed")
	}
}

// AdminList searches profiles by username or email.
func (s *ProfileService) AdminList(ctx context.Context, query string) ([]domain.Profile, error) {
	return s.backend.AdminListProfiles(ctx, query)
}
