package realtime

import (
	"context"
	"log"
	"time"
)

// DelaySink receives delay updates; satisfied by the simulation engine.
type DelaySink interface {
	ApplyDelay(trainID string, minutes int) bool
}

// Watcher periodically polls the TripUpdates feed and pushes reported
// delays into the engine. Feed failures are logged and skipped; the
// simulation keeps running on its last known delays.
type Watcher struct {
	client   *Client
	sink     DelaySink
	interval time.Duration
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(client *Client, sink DelaySink, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{client: client, sink: sink, interval: interval}
}

// Run polls until the context is cancelled. Blocks; run in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ticker.C:
			w.poll(ctx)
		case <-ctx.Done():
			log.Println("Realtime: delay watcher stopped")
			return
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	delays, err := w.client.FetchDelays(ctx)
	if err != nil {
		log.Printf("Realtime: trip updates fetch failed (continuing): %v", err)
		return
	}

	applied := 0
	for trainID, minutes := range delays {
		if w.sink.ApplyDelay(trainID, minutes) {
			applied++
		}
	}
	log.Printf("Realtime: polled %d trip delays, applied %d", len(delays), applied)
}
