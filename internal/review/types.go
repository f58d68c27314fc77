package review

// Outcome is the overall result of checking a change set.
type Outcome string

const (
	OutcomeClean      Outcome = "clean"
	OutcomeViolations Outcome = "violations"
	OutcomeCritical   Outcome = "critical"
)

// OutcomeRank returns a numeric rank for comparing outcomes (higher = worse).
func OutcomeRank(o Outcome) int {
	switch o {
	case OutcomeCritical:
		return 2
	case OutcomeViolations:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold reports whether outcome should fail a gate configured with
// failOn ("none", "violations" or "critical").
func MeetsThreshold(o Outcome, failOn string) bool {
	switch failOn {
	case "violations":
		return OutcomeRank(o) >= OutcomeRank(OutcomeViolations)
	case "critical":
		return o == OutcomeCritical
	default:
		return false
	}
}

// Violation is one match of one rule in one file's added content.
type Violation struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
	// Critical is copied from the rule.
	Critical bool   `json:"critical"`
	Fix      string `json:"fix,omitempty"`
	// Match is the matched text.
	Match string `json:"match"`
	// FileLine is the post-change line in the file, whatever the line
	// mapping. Zero when unknown.
	FileLine int `json:"fileLine,omitempty"`
}

// AnnotationLine is the line to mark in the changed file.
func (v Violation) AnnotationLine() int {
	if v.FileLine > 0 {
		return v.FileLine
	}
	return v.Line
}

// Verdict summarizes a set of violations.
type Verdict struct {
	TotalViolations int     `json:"totalViolations"`
	HasCritical     bool    `json:"hasCritical"`
	Outcome         Outcome `json:"outcome"`
}

// SkippedRule records a rule whose pattern could not be compiled while
// checking a file.
type SkippedRule struct {
	Path   string `json:"path"`
	RuleID string `json:"ruleId"`
	Error  string `json:"error"`
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode      string   `json:"mode"`
	Range     string   `json:"range,omitempty"`
	Extension string   `json:"extension"`
	Files     []string `json:"files"`
	Truncated bool     `json:"truncated,omitempty"`
}

// RulesInfo identifies the rule set a report was produced with.
type RulesInfo struct {
	Count  int    `json:"count"`
	Digest string `json:"digest"`
}

// Timing contains performance metrics.
type Timing struct {
	ParseMs int64 `json:"parseMs"`
	MatchMs int64 `json:"matchMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool       string        `json:"tool"`
	Version    string        `json:"version"`
	RunID      string        `json:"runId"`
	Repo       RepoInfo      `json:"repo"`
	Inputs     InputInfo     `json:"inputs"`
	Rules      RulesInfo     `json:"rules"`
	Verdict    Verdict       `json:"verdict"`
	Violations []Violation   `json:"violations"`
	Skipped    []SkippedRule `json:"skipped,omitempty"`
	Timing     Timing        `json:"timing"`
}
