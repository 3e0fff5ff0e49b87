package cascade

import "fmt"

// Level is the ordinal complexity classification of a task.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// Levels lists all complexity levels in ascending order.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a policy-file level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown complexity level %q", s)
	}
}

// Signals holds the features measured from a task's text and recent history.
// A Signals value is immutable once produced by an analysis call.
type Signals struct {
	// Length is the task text length in characters.
	Length int
	// FilePaths is the number of distinct file paths referenced.
	FilePaths int
	// CodeBlocks is the number of fenced code blocks.
	CodeBlocks int
	// MultiStepKeywords is the number of multi-step intent keywords found
	// (refactor, migrate, redesign, ...).
	MultiStepKeywords int
	// PriorFailures is the count of failed attempts earlier in the
	// conversation.
	PriorFailures int
	// StackTrace reports whether the text contains stack-trace-like error
	// output.
	StackTrace bool
}

// Complexity is the result of analyzing a task: the measured signals plus
// the level derived from them. Identical signals always derive the same
// level.
type Complexity struct {
	Signals Signals
	Level   Level
}
