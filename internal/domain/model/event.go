// Package model contains domain models passed between layers.
package model

import "time"

// Event types that carry a graded submission.
const (
	EventSubmit        = "Submit"
	EventRunProgram    = "Run.Program"
	EventProjectSubmit = "Project.Submit"
)

// Event is one row of the ProgSnap2 main table.
type Event struct {
	EventID         string    // unique id; duplicates are rejected
	SubjectID       string    // learner identifier, may be empty
	ProblemID       string    // problem the event belongs to, may be empty
	AssignmentID    string    // optional grouping of problems
	EventType       string    // e.g. "Submit", "Run.Program", "Session.Start"
	Code            string    // code state at the time of the event
	ClientTimestamp string    // as reported by the client, unparsed
	ServerTimestamp time.Time // set when the event is logged
	Score           *float64  // grade in [0,1]; nil when ungraded
}

// IsSubmission reports whether the event type carries a graded submission.
func (e Event) IsSubmission() bool {
	switch e.EventType {
	case EventSubmit, EventRunProgram, EventProjectSubmit:
		return true
	}
	return false
}

// Labeled reports whether the event is a submission with a score.
func (e Event) Labeled() bool {
	return e.IsSubmission() && e.Score != nil
}

// Correct reports whether the event is a fully correct submission.
func (e Event) Correct() bool {
	return e.Labeled() && IsCorrectScore(*e.Score)
}

// IsCorrectScore is the grading threshold for a correct submission.
func IsCorrectScore(score float64) bool { return score >= 1 }

// Submission is a submitted code text with its label.
type Submission struct {
	Code    string
	Correct bool
	Time    time.Time // first time this code text was logged
}
