// Package metrics defines the custom Prometheus metrics of the easyref API.
// Request level metrics come from echoprometheus; everything here is domain
// specific.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/easyref/easyref-api/internal/core/ports"
)

const namespace = "easyref"

// ── Workspace metrics ─────────────────────────────────────────────────────────

// RejectedMutationsTotal counts mutations refused before or by the backend.
// Label:
//   - reason: a conflict kind (e.g. "tag_in_use", "referral_limit") or "busy", "submit_in_flight"
var RejectedMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_mutations_total",
		Help:      "Total number of mutations rejected by a business rule or a busy workspace.",
	},
	[]string{"reason"},
)

// ThemeResetsTotal counts explicit theme draft resets.
var ThemeResetsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "theme_resets_total",
		Help:      "Total number of theme drafts reset by their owner.",
	},
)

// TrackWorkspaces exports the number of workspaces held in memory, read from
// count at scrape time. Call it once.
func TrackWorkspaces(count func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workspaces_open",
			Help:      "Current number of creator workspaces held in memory.",
		},
		func() float64 { return float64(count()) },
	)
}

// ── Billing metrics ───────────────────────────────────────────────────────────

// WebhookDedupTotal counts deduplication decisions on payment webhooks.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new event, queued)
var WebhookDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_dedup_total",
		Help:      "Total number of webhook deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// WebhookProcessingDuration measures how long one webhook event takes to apply.
// Labels:
//   - type: the provider event type
//   - result: "ok" or "error"
var WebhookProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_processing_duration_seconds",
		Help:      "Duration of webhook processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"type", "result"},
)

// UpgradeWaitsTotal counts finished upgrade waits by terminal status.
var UpgradeWaitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upgrade_waits_total",
		Help:      "Total number of upgrade waits, labelled by terminal status.",
	},
	[]string{"status"},
)

// InstrumentProcessor wraps p so every processed event is timed.
func InstrumentProcessor(p ports.WebhookProcessor) ports.WebhookProcessor {
	return instrumented{next: p}
}

type instrumented struct {
	next ports.WebhookProcessor
}

func (i instrumented) Process(ctx context.Context, ev ports.WebhookEvent) error {
	start := time.Now()
	err := i.next.Process(ctx, ev)
	result := "ok"
	if err != nil {
		result = "error"
	}
	WebhookProcessingDuration.WithLabelValues(ev.Type, result).Observe(time.Since(start).Seconds())
	return err
}
