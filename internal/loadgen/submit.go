package loadgen

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/stride/pkg/logger"
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// submitEvents posts events from cfg.Workers goroutines and fills the
// submission counters of stats.
func submitEvents(ctx context.Context, cfg *Config, events []Event, stats *Stats) {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/events"

	var submitted, accepted, duplicate, failed atomic.Int64

	jobs := make(chan Event, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				if ctx.Err() != nil {
					return
				}
				submitted.Add(1)
				switch submitOne(ctx, client, url, e) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "event submitted", logger.String("event_id", e.EventID))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case jobs <- e:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "event submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
}

func submitOne(ctx context.Context, client *httpClient, url string, e Event) outcome {
	status, body, err := client.post(ctx, url, e)
	if err != nil {
		return outcomeFailed
	}
	var ack AckResponse
	switch status {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		if json.Unmarshal(body, &ack) == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeAccepted
	default:
		return outcomeFailed
	}
}
