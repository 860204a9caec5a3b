package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	ProblemID    string        // Problem the submissions target
	Submissions  int           // Number of submissions to generate
	CorrectRatio float64       // Share of submissions that pass
	Workers      int           // Number of concurrent senders
	Seed         uint64        // Seed for variant selection
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between feedback polls
	PollTimeout  time.Duration // Give up waiting for a model after this long
	Verbose      bool          // Log every request outcome
}

// Event mirrors the POST /events body.
type Event struct {
	EventID   string   `json:"event_id"`
	SubjectID string   `json:"subject_id"`
	ProblemID string   `json:"problem_id"`
	EventType string   `json:"event_type"`
	Code      string   `json:"code"`
	Score     *float64 `json:"score"`
}

// AckResponse is the POST /events reply.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// FeedbackRequest mirrors the POST /feedback body.
type FeedbackRequest struct {
	ProblemID string `json:"problem_id"`
	SubjectID string `json:"subject_id"`
	Code      string `json:"code"`
}

// Feedback is the POST /feedback reply.
type Feedback struct {
	Shown    bool               `json:"shown"`
	Progress *float64           `json:"progress,omitempty"`
	Score    *float64           `json:"score,omitempty"`
	Subgoals map[string]float64 `json:"subgoal_scores,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Correct    int
	Submitted  int
	Accepted   int
	Duplicate  int
	Failed     int
	Polls      int
	ModelReady bool
	Feedback   Feedback
	StartTime  time.Time
	Duration   time.Duration
}
