package cascade

import (
	"strings"
)

// multiStepKeywords are words that indicate multi-step intent in a task
// description.
var multiStepKeywords = []string{
	"refactor",
	"migrate",
	"migration",
	"redesign",
	"rewrite",
	"restructure",
	"overhaul",
	"integrate",
	"end-to-end",
}

// failureMarkers are substrings in prior conversation entries that count as
// a failed attempt.
var failureMarkers = []string{
	"error:",
	"failed",
	"failure",
	"did not pass",
}

// stackTraceMarkers are substrings that indicate stack-trace-like error text.
var stackTraceMarkers = []string{
	"panic:",
	"goroutine ",
	"traceback (most recent call last",
	"exception in thread",
	"stack trace:",
}

// Analyzer classifies a task's complexity from its text and recent
// conversational history. Implementations must be pure: no shared state, no
// I/O, and identical inputs must classify identically. Empty input
// classifies as the lowest level, never an error.
type Analyzer interface {
	Analyze(taskText string, recentHistory []string) Complexity
}

// Weights holds the scoring contribution of each signal. All weights are
// non-negative, so increasing any signal can only raise the score (and
// therefore never lowers the derived level).
type Weights struct {
	FilePath     int
	CodeBlock    int
	Keyword      int
	PriorFailure int
	StackTrace   int

	// LengthSteps maps character-count thresholds to points. Points are
	// taken from the largest threshold the text length reaches.
	LengthSteps []LengthStep

	// MediumAt, HighAt, CriticalAt are the minimum scores for each level.
	// Anything below MediumAt is Low.
	MediumAt   int
	HighAt     int
	CriticalAt int
}

// LengthStep awards Points when the task text is at least Chars long.
type LengthStep struct {
	Chars  int
	Points int
}

// DefaultWeights returns the scoring weights used by the production
// analyzer. The exact values are policy and may be tuned; only the
// monotonicity of the resulting classification is load-bearing.
func DefaultWeights() Weights {
	return Weights{
		FilePath:     1,
		CodeBlock:    2,
		Keyword:      2,
		PriorFailure: 2,
		StackTrace:   2,
		LengthSteps: []LengthStep{
			{Chars: 200, Points: 1},
			{Chars: 1000, Points: 2},
			{Chars: 3000, Points: 4},
		},
		MediumAt:   3,
		HighAt:     6,
		CriticalAt: 10,
	}
}

// HeuristicAnalyzer is the production Analyzer. It extracts rule-based
// signals (presence checks and counts, no backend calls) and maps the
// weighted score onto a Level.
type HeuristicAnalyzer struct {
	weights  Weights
	keywords []string
}

// NewHeuristicAnalyzer creates an analyzer with the default weights.
func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return NewHeuristicAnalyzerWithWeights(DefaultWeights())
}

// NewHeuristicAnalyzerWithWeights creates an analyzer with custom weights.
// Negative weights are clamped to zero to preserve monotonicity.
func NewHeuristicAnalyzerWithWeights(w Weights) *HeuristicAnalyzer {
	w.FilePath = max(w.FilePath, 0)
	w.CodeBlock = max(w.CodeBlock, 0)
	w.Keyword = max(w.Keyword, 0)
	w.PriorFailure = max(w.PriorFailure, 0)
	w.StackTrace = max(w.StackTrace, 0)
	for i := range w.LengthSteps {
		w.LengthSteps[i].Points = max(w.LengthSteps[i].Points, 0)
	}
	return &HeuristicAnalyzer{
		weights:  w,
		keywords: append([]string{}, multiStepKeywords...),
	}
}

// Analyze extracts signals from the task text and recent history and
// derives the complexity level.
func (a *HeuristicAnalyzer) Analyze(taskText string, recentHistory []string) Complexity {
	sig := a.extractSignals(taskText, recentHistory)
	return Complexity{
		Signals: sig,
		Level:   a.Classify(sig),
	}
}

// Classify maps a signal set onto a Level. It is deterministic and
// monotone: raising any one signal while holding the others fixed never
// lowers the result.
func (a *HeuristicAnalyzer) Classify(sig Signals) Level {
	score := a.score(sig)
	switch {
	case score >= a.weights.CriticalAt:
		return LevelCritical
	case score >= a.weights.HighAt:
		return LevelHigh
	case score >= a.weights.MediumAt:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (a *HeuristicAnalyzer) score(sig Signals) int {
	score := 0
	for _, step := range a.weights.LengthSteps {
		if sig.Length >= step.Chars {
			score = max(score, step.Points)
		}
	}
	score += sig.FilePaths * a.weights.FilePath
	score += sig.CodeBlocks * a.weights.CodeBlock
	score += sig.MultiStepKeywords * a.weights.Keyword
	score += sig.PriorFailures * a.weights.PriorFailure
	if sig.StackTrace {
		score += a.weights.StackTrace
	}
	return score
}

func (a *HeuristicAnalyzer) extractSignals(taskText string, recentHistory []string) Signals {
	lower := strings.ToLower(taskText)

	keywords := 0
	for _, kw := range a.keywords {
		if strings.Contains(lower, kw) {
			keywords++
		}
	}

	failures := 0
	for _, entry := range recentHistory {
		entryLower := strings.ToLower(entry)
		for _, marker := range failureMarkers {
			if strings.Contains(entryLower, marker) {
				failures++
				break
			}
		}
	}

	stackTrace := containsStackTrace(lower)
	if !stackTrace {
		for _, entry := range recentHistory {
			if containsStackTrace(strings.ToLower(entry)) {
				stackTrace = true
				break
			}
		}
	}

	return Signals{
		Length:            len(taskText),
		FilePaths:         countFilePaths(taskText),
		CodeBlocks:        strings.Count(taskText, "```") / 2,
		MultiStepKeywords: keywords,
		PriorFailures:     failures,
		StackTrace:        stackTrace,
	}
}

func containsStackTrace(lower string) bool {
	for _, marker := range stackTraceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// countFilePaths counts distinct path-like tokens in the text. A token
// counts as a path when it contains a separator and a dot-extension,
// matching how file references typically appear in task descriptions.
func countFilePaths(text string) int {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		// Trailing punctuation only; keep leading dots for dotfiles.
		cleaned := strings.TrimRight(word, ",;:\"'`()[]{}!?")
		if !strings.ContainsAny(cleaned, "/\\") {
			continue
		}
		base := cleaned[strings.LastIndexAny(cleaned, "/\\")+1:]
		if strings.Contains(base, ".") {
			seen[cleaned] = struct{}{}
		}
	}
	return len(seen)
}
