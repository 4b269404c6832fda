package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/ports"
)

type recordingProcessor struct {
	mu   sync.Mutex
	seen []ports.WebhookEvent
	fail map[string]error
}

func (p *recordingProcessor) Process(_ context.Context, ev ports.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, ev)
	return p.fail[ev.ID]
}

func TestDispatcher_PerProfileOrder(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(3, proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	var wg sync.WaitGroup
	for _, profile := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(profile string) {
			defer wg.Done()
			for _, id := range []string{"e1", "e2", "e3"} {
				if err := d.Submit(ctx, ports.WebhookEvent{ID: id, ProfileID: profile}); err != nil {
					t.Errorf("submit %s/%s: %v", profile, id, err)
				}
			}
		}(profile)
	}
	wg.Wait()

	proc.mu.Lock()
	defer proc.mu.Unlock()
	order := map[string][]string{}
	for _, ev := range proc.seen {
		order[ev.ProfileID] = append(order[ev.ProfileID], ev.ID)
	}
	for _, p := range []string{"p1", "p2"} {
		got := order[p]
		if len(got) != 3 || got[0] != "e1" || got[1] != "e2" || got[2] != "e3" {
			t.Fatalf("profile %s: got order %v", p, got)
		}
	}
}

func TestDispatcher_SubmitReturnsProcessingError(t *testing.T) {
	boom := errors.New("store unavailable")
	proc := &recordingProcessor{fail: map[string]error{"evt_bad": boom}}
	d := NewDispatcher(2, proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	if err := d.Submit(ctx, ports.WebhookEvent{ID: "evt_bad", ProfileID: "p1"}); !errors.Is(err, boom) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if err := d.Submit(ctx, ports.WebhookEvent{ID: "evt_ok", ProfileID: "p1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_SubmitHonoursContext(t *testing.T) {
	d := NewDispatcher(1, &recordingProcessor{}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Workers never started: the event is buffered but never answered.
	if err := d.Submit(ctx, ports.WebhookEvent{ID: "evt_1", ProfileID: "p1"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, nil, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	a, b := d.shardIndex("profile-1"), d.shardIndex("profile-1")
	if a != b {
		t.Fatalf("shard index not deterministic: %d vs %d", a, b)
	}
	if a < 0 || a >= defaultWorkers {
		t.Fatalf("shard index out of range: %d", a)
	}
}
