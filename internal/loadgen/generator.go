package loadgen

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Event types cycled through by the generator.
var submissionTypes = []string{"Submit", "Run.Program", "Project.Submit"}

var (
	accumulators = []string{"total", "acc", "result", "s", "running"}
	items        = []string{"v", "x", "item", "value", "n"}
)

// StarterCode is what learners begin from.
const StarterCode = "def total(values):\n    pass\n"

// correctCode renders a passing solution. extra adds an unrelated line so
// variants do not collapse into a handful of distinct texts.
func correctCode(acc, item string, extra int) string {
	var b strings.Builder
	b.WriteString("def total(values):\n")
	fmt.Fprintf(&b, "    %s = 0\n", acc)
	fmt.Fprintf(&b, "    for %s in values:\n", item)
	fmt.Fprintf(&b, "        %s += %s\n", acc, item)
	if extra > 0 {
		fmt.Fprintf(&b, "    checked_%d = True\n", extra)
	}
	fmt.Fprintf(&b, "    return %s\n", acc)
	return b.String()
}

// incorrectCode renders one of a few typical wrong attempts.
func incorrectCode(acc, item string, kind int) string {
	switch kind % 3 {
	case 0:
		return fmt.Sprintf("def total(values):\n    %s = 0\n    return %s\n", acc, acc)
	case 1:
		return fmt.Sprintf("def total(values):\n    for %s in values:\n        return %s\n", item, item)
	default:
		return fmt.Sprintf("def total(values):\n    %s = 0\n    for %s in values:\n        %s = %s\n    return %s\n",
			acc, item, acc, item, acc)
	}
}

// Generate builds cfg.Submissions events for cfg.ProblemID. Exactly
// round(Submissions*CorrectRatio) of them are correct, in shuffled order.
func Generate(cfg *Config) []Event {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	n := cfg.Submissions
	correct := int(float64(n)*cfg.CorrectRatio + 0.5)

	events := make([]Event, n)
	for i := range events {
		acc := accumulators[rng.IntN(len(accumulators))]
		item := items[rng.IntN(len(items))]

		var (
			code  string
			score float64
		)
		if i < correct {
			code, score = correctCode(acc, item, i), 1
		} else {
			code, score = incorrectCode(acc, item, i), 0
		}
		events[i] = Event{
			EventID:   uuid.NewString(),
			SubjectID: uuid.NewString(),
			ProblemID: cfg.ProblemID,
			EventType: submissionTypes[i%len(submissionTypes)],
			Code:      code,
			Score:     &score,
		}
	}
	rng.Shuffle(n, func(i, j int) { events[i], events[j] = events[j], events[i] })
	return events
}
