// Package condition assigns learners to the control or intervention arm.
//
// Assignment is decided, in order, by a per-problem override, a fixed
// policy, or a sticky per-subject draw. The draw is a stable hash of the
// scope and subject compared against the configured probability; its
// outcome is persisted on first use and never recomputed.
package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/stride/internal/domain/types"
)

// Policy selects how learners without an override are assigned.
type Policy string

// Supported policies.
const (
	AllControl      Policy = "all_control"
	AllIntervention Policy = "all_intervention"
	RandomStudent   Policy = "random_student"
)

// Store persists sticky assignments.
type Store interface {
	// Get returns the persisted assignment, if any.
	Get(ctx context.Context, scope, subject string) (intervention bool, ok bool, err error)
	// PutIfAbsent stores intervention unless a value already exists and
	// returns whichever value is persisted afterwards.
	PutIfAbsent(ctx context.Context, scope, subject string, intervention bool) (bool, error)
}

// Settings carries the experiment configuration.
type Settings struct {
	Scope       string
	Policy      Policy
	Probability float64
	// Overrides force an arm for a problem, bypassing policy and inversion.
	Overrides map[string]types.Condition
	// Inverted flips the random draw for the listed problems.
	Inverted map[string]struct{}
}

// NewSettings builds Settings from raw configuration values.
func NewSettings(scope, policy string, probability float64, overrides map[string]string, inverted []string) (Settings, error) {
	s := Settings{
		Scope:       scope,
		Policy:      Policy(strings.ToLower(strings.TrimSpace(policy))),
		Probability: probability,
		Overrides:   make(map[string]types.Condition, len(overrides)),
		Inverted:    make(map[string]struct{}, len(inverted)),
	}
	if err := s.Policy.validate(); err != nil {
		return Settings{}, err
	}
	for problem, raw := range overrides {
		c, err := types.ParseCondition(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: override for %s: %v", ErrConfiguration, problem, err)
		}
		s.Overrides[problem] = c
	}
	for _, p := range inverted {
		s.Inverted[p] = struct{}{}
	}
	return s, nil
}

func (p Policy) validate() error {
	switch p {
	case AllControl, AllIntervention, RandomStudent:
		return nil
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrConfiguration, string(p))
	}
}

// Assign decides whether subject receives the intervention on problem.
// An empty subject is never persisted.
func Assign(ctx context.Context, store Store, s Settings, subject, problem string) (bool, error) {
	if c, ok := s.Overrides[problem]; ok {
		return c.IsIntervention(), nil
	}

	switch s.Policy {
	case AllControl:
		return false, nil
	case AllIntervention:
		return true, nil
	case RandomStudent:
	default:
		return false, s.Policy.validate()
	}

	value, err := sticky(ctx, store, s, subject)
	if err != nil {
		return false, err
	}
	if _, ok := s.Inverted[problem]; ok {
		value = !value
	}
	return value, nil
}

func sticky(ctx context.Context, store Store, s Settings, subject string) (bool, error) {
	fresh := Draw(s.Scope, subject) < s.Probability
	if subject == "" || store == nil {
		return fresh, nil
	}

	if v, ok, err := store.Get(ctx, s.Scope, subject); err != nil {
		return false, err
	} else if ok {
		return v, nil
	}
	return store.PutIfAbsent(ctx, s.Scope, subject, fresh)
}

// Draw maps scope and subject to a stable value in [0,1).
func Draw(scope, subject string) float64 {
	h := xxhash.Sum64String(scope + subject)
	return float64(h>>11) / (1 << 53)
}

// Assigner binds Settings to a Store.
type Assigner struct {
	settings Settings
	store    Store
}

// NewAssigner validates settings and returns an Assigner.
func NewAssigner(settings Settings, store Store) (*Assigner, error) {
	if err := settings.Policy.validate(); err != nil {
		return nil, err
	}
	return &Assigner{settings: settings, store: store}, nil
}

// Assign decides the arm for subject on problem.
func (a *Assigner) Assign(ctx context.Context, subject, problem string) (bool, error) {
	return Assign(ctx, a.store, a.settings, subject, problem)
}

// Settings returns the bound settings.
func (a *Assigner) Settings() Settings { return a.settings }
