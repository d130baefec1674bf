// Package realtime ingests a GTFS-RT TripUpdates feed and maps reported
// stop-time delays onto the engine's per-train delay-in-minutes value.
package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Client fetches and decodes a GTFS-RT TripUpdates feed.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a feed client for the given TripUpdates URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchDelays fetches the feed and returns the per-trip delay in whole
// minutes, keyed by trip identifier.
func (c *Client) FetchDelays(ctx context.Context) (map[string]int, error) {
	feed, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}
	return extractDelays(feed), nil
}

// fetchFeed fetches and parses the protobuf feed.
func (c *Client) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}

// extractDelays reduces a TripUpdates feed to one non-negative delay per
// trip: the worst reported arrival or departure delay across its stop time
// updates, rounded up to whole minutes.
func extractDelays(feed *gtfs.FeedMessage) map[string]int {
	delays := make(map[string]int)
	for _, entity := range feed.Entity {
		tu := entity.TripUpdate
		if tu == nil || tu.Trip == nil || tu.Trip.TripId == nil {
			continue
		}
		tripID := *tu.Trip.TripId

		worstSeconds := 0
		for _, stu := range tu.StopTimeUpdate {
			if stu.Arrival != nil && stu.Arrival.Delay != nil {
				if d := int(*stu.Arrival.Delay); d > worstSeconds {
					worstSeconds = d
				}
			}
			if stu.Departure != nil && stu.Departure.Delay != nil {
				if d := int(*stu.Departure.Delay); d > worstSeconds {
					worstSeconds = d
				}
			}
		}

		minutes := (worstSeconds + 59) / 60
		if existing, ok := delays[tripID]; !ok || minutes > existing {
			delays[tripID] = minutes
		}
	}
	return delays
}
