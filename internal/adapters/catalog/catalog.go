// Package catalog holds per-problem reference data: language, starter code
// and subgoal definitions.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/stride/internal/domain/subgoal"
)

// ErrLoad is returned when a catalog file exists but cannot be read.
var ErrLoad = errors.New("failed to load problem catalog")

// Problem is one catalog entry.
type Problem struct {
	ID       string `koanf:"id"`
	Language string `koanf:"language"`
	// StarterCode is the code learners start from. Its features are the
	// progress baseline.
	StarterCode string              `koanf:"starter_code"`
	Subgoals    *subgoal.Definition `koanf:"subgoals"`
}

type document struct {
	Problems []Problem `koanf:"problems"`
}

// Catalog is an immutable set of problems keyed by id.
type Catalog struct {
	problems map[string]Problem
}

// New builds a catalog from problems. Later entries win on duplicate ids.
func New(problems ...Problem) *Catalog {
	c := &Catalog{problems: make(map[string]Problem, len(problems))}
	for _, p := range problems {
		if p.ID == "" {
			continue
		}
		c.problems[p.ID] = p
	}
	return c
}

// Load reads a YAML catalog:
//
//	problems:
//	  - id: P1
//	    language: python
//	    starter_code: "def f(n):\n    pass\n"
//	    subgoals:
//	      code_lines: ["for i in range(n):", "    total += i"]
//	      highlights:
//	        - {subgoal: 0, line: 0, column_start: 0, text: "for i in range(n):"}
//
// An empty path or a missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	var f document
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	return New(f.Problems...), nil
}

// ReferenceCode returns the starter code of a problem.
func (c *Catalog) ReferenceCode(problemID string) (string, bool) {
	p, ok := c.problems[problemID]
	if !ok || p.StarterCode == "" {
		return "", false
	}
	return p.StarterCode, true
}

// SubgoalDefinitions returns the subgoal definition of a problem, if any.
func (c *Catalog) SubgoalDefinitions(problemID string) (*subgoal.Definition, bool) {
	p, ok := c.problems[problemID]
	if !ok || p.Subgoals == nil || len(p.Subgoals.Highlights) == 0 {
		return nil, false
	}
	return p.Subgoals, true
}

// Language returns the language of a problem, or "" when unknown.
func (c *Catalog) Language(problemID string) string {
	return c.problems[problemID].Language
}

// IDs returns the sorted problem ids.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.problems))
	for id := range c.problems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of problems.
func (c *Catalog) Len() int { return len(c.problems) }
