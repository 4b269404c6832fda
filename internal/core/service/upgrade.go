package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// UpgradeStatus is the terminal state of an upgrade wait.
type UpgradeStatus string

const (
	UpgradeComplete UpgradeStatus = "complete"
	// UpgradeStale means the tier did not flip within the attempt budget.
	UpgradeStale UpgradeStatus = "stale"
	// UpgradeUnknown means the wait was cancelled before an answer.
	UpgradeUnknown UpgradeStatus = "unknown"
)

// UpgradeResult reports how a wait ended.
type UpgradeResult struct {
	Status   UpgradeStatus   `json:"status"`
	Attempts int             `json:"attempts"`
	Profile  *domain.Profile `json:"profile,omitempty"`
}

// ProfileFetcher reads a profile by id.
type ProfileFetcher interface {
	GetProfileByID(ctx context.Context, id string) (domain.Profile, error)
}

// UpgradeWaiter waits for the payment webhook to land by re-reading the
// profile at a fixed interval for a bounded number of attempts.
type UpgradeWaiter struct {
	profiles ProfileFetcher
	attempts int
	interval time.Duration
	log      zerolog.Logger
}

func NewUpgradeWaiter(profiles ProfileFetcher, attempts int, interval time.Duration, log zerolog.Logger) *UpgradeWaiter {
	if attempts <= 0 {
		attempts = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &UpgradeWaiter{profiles: profiles, attempts: attempts, interval: interval, log: log}
}

// Wait returns as soon as profileID is premium, after the last attempt with
// UpgradeStale, or with UpgradeUnknown once ctx is done. Fetch errors count
// as an attempt.
func (u *UpgradeWaiter) Wait(ctx context.Context, profileID string) UpgradeResult {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; attempt <= u.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return UpgradeResult{Status: UpgradeUnknown, Attempts: attempt - 1}
		case <-timer.C:
		}

		p, err := u.profiles.GetProfileByID(ctx, profileID)
		switch {
		case err != nil:
			u.log.Warn().Err(err).Str("profile_id", profileID).Int("attempt", attempt).Msg("upgrade poll failed")
		case p.Tier == domain.TierPremium:
			return UpgradeResult{Status: UpgradeComplete, Attempts: attempt, Profile: &p}
		}
		timer.Reset(u.interval)
	}
	return UpgradeResult{Status: UpgradeStale, Attempts: u.attempts}
}
