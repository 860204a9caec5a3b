// Package loadgen drives a running service with synthetic submissions and
// checks that feedback becomes available once enough are correct.
package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stride/pkg/logger"
)

// ErrNoModel is returned when feedback never became available.
var ErrNoModel = errors.New("no model published before the poll timeout")

// Run checks service health, submits the generated events and polls
// /feedback with a full solution until it is shown.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.Duration = time.Since(stats.StartTime) }()

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("problem", cfg.ProblemID),
		logger.Int("submissions", cfg.Submissions),
		logger.Float64("correctRatio", cfg.CorrectRatio),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	if err := checkHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events := Generate(cfg)
	stats.Generated = len(events)
	for _, e := range events {
		if e.Score != nil && *e.Score >= 1 {
			stats.Correct++
		}
	}

	submitEvents(ctx, cfg, events, stats)

	fb, polls, err := pollFeedback(ctx, client, cfg)
	stats.Polls = polls
	if err != nil {
		return stats, err
	}
	stats.ModelReady = true
	stats.Feedback = fb

	report(ctx, log, stats)
	return stats, nil
}

func checkHealth(ctx context.Context, client *httpClient, baseURL string) error {
	status, _, err := client.get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

// pollFeedback asks for feedback on a full solution until it is shown.
// Control learners never see feedback, so each poll uses a fresh subject.
func pollFeedback(ctx context.Context, client *httpClient, cfg *Config) (Feedback, int, error) {
	deadline := time.Now().Add(cfg.PollTimeout)
	url := cfg.BaseURL + "/feedback"
	polls := 0

	for {
		polls++
		req := FeedbackRequest{ProblemID: cfg.ProblemID, SubjectID: uuid.NewString(), Code: correctCode("total", "v", 0)}
		status, body, err := client.post(ctx, url, req)
		if err == nil && status == http.StatusOK {
			var fb Feedback
			if json.Unmarshal(body, &fb) == nil && fb.Shown {
				return fb, polls, nil
			}
		}
		if time.Now().After(deadline) {
			return Feedback{}, polls, ErrNoModel
		}
		select {
		case <-ctx.Done():
			return Feedback{}, polls, fmt.Errorf("poll feedback: %w", ctx.Err())
		case <-time.After(cfg.PollInterval):
		}
	}
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	fields := []logger.Field{
		logger.Int("generated", stats.Generated),
		logger.Int("correct", stats.Correct),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("polls", stats.Polls),
		logger.Duration("duration", time.Since(stats.StartTime)),
	}
	if p := stats.Feedback.Progress; p != nil {
		fields = append(fields, logger.Float64("progress", *p))
	}
	if s := stats.Feedback.Score; s != nil {
		fields = append(fields, logger.Float64("score", *s))
	}
	log.Info(ctx, "load run completed", fields...)
}
