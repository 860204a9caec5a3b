package catalog

import (
	"context"

	"github.com/okian/stride/internal/adapters/eventlog"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/subgoal"
)

// Dataset joins the static catalog with the live event log. It is the
// training data source of the rebuild scheduler.
type Dataset struct {
	catalog *Catalog
	log     eventlog.Log
}

// NewDataset returns a Dataset over c and l. A nil catalog is treated as empty.
func NewDataset(c *Catalog, l eventlog.Log) *Dataset {
	if c == nil {
		c = New()
	}
	return &Dataset{catalog: c, log: l}
}

// Catalog returns the static problem data.
func (d *Dataset) Catalog() *Catalog { return d.catalog }

// DistinctCorrectCount counts distinct correct code texts for a problem.
func (d *Dataset) DistinctCorrectCount(ctx context.Context, problemID string) (int, error) {
	return d.log.DistinctCorrectCount(ctx, problemID)
}

// CorrectSubmissions returns the distinct correct submissions of a problem.
func (d *Dataset) CorrectSubmissions(ctx context.Context, problemID string) ([]model.Submission, error) {
	return d.log.CorrectSubmissions(ctx, problemID)
}

// LabeledSubmissions returns every scored submission of a problem.
func (d *Dataset) LabeledSubmissions(ctx context.Context, problemID string) ([]model.Submission, error) {
	return d.log.LabeledSubmissions(ctx, problemID)
}

// ReferenceCode returns the starter code of a problem.
func (d *Dataset) ReferenceCode(problemID string) (string, bool) {
	return d.catalog.ReferenceCode(problemID)
}

// SubgoalDefinitions returns the subgoal definition of a problem.
func (d *Dataset) SubgoalDefinitions(problemID string) (*subgoal.Definition, bool) {
	return d.catalog.SubgoalDefinitions(problemID)
}

// Language returns the language of a problem.
func (d *Dataset) Language(problemID string) string {
	return d.catalog.Language(problemID)
}
