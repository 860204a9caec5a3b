// Package types contains common types used across the application
package types

import (
	"fmt"
	"strings"
)

// Condition is the experiment arm a learner is placed in.
type Condition string

// Experiment arms.
const (
	Control      Condition = "control"
	Intervention Condition = "intervention"
)

// ConditionOf maps an intervention flag to its arm.
func ConditionOf(intervention bool) Condition {
	if intervention {
		return Intervention
	}
	return Control
}

// ParseCondition accepts "control" or "intervention" in any case.
func ParseCondition(s string) (Condition, error) {
	switch Condition(strings.ToLower(strings.TrimSpace(s))) {
	case Control:
		return Control, nil
	case Intervention:
		return Intervention, nil
	default:
		return "", fmt.Errorf("unknown condition %q", s)
	}
}

// IsIntervention reports whether c is the intervention arm.
func (c Condition) IsIntervention() bool { return c == Intervention }
