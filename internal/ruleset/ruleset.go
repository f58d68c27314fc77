package ruleset

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one pattern-plus-metadata style rule.
type Rule struct {
	ID       string `json:"id" yaml:"id"`
	Pattern  string `json:"pattern" yaml:"pattern"`
	Message  string `json:"message" yaml:"message"`
	Critical bool   `json:"critical" yaml:"critical"`
	Fix      string `json:"fix,omitempty" yaml:"fix,omitempty"`
}

// RuleSet is the ordered collection of rules for one run.
type RuleSet struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Format identifies the encoding of a rules document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// entry is the on-disk shape. Pointers let validation tell absent from empty.
type entry struct {
	ID       *string `json:"id" yaml:"id"`
	Pattern  *string `json:"pattern" yaml:"pattern"`
	Message  *string `json:"message" yaml:"message"`
	Critical *bool   `json:"critical" yaml:"critical"`
	Severity string  `json:"severity" yaml:"severity"`
	Fix      *string `json:"fix" yaml:"fix"`
}

// document is the mapping form. Rules is a pointer so a document without
// a rules key is told apart from an empty list.
type document struct {
	Rules *[]entry `json:"rules" yaml:"rules"`
}

func (d document) entries() ([]entry, error) {
	if d.Rules == nil {
		return nil, fmt.Errorf("rules document has no \"rules\" list")
	}
	return *d.Rules, nil
}

// Load reads a rules file from disk. The format is chosen by extension:
// .json is JSON, anything else is YAML.
func Load(path string) (RuleSet, error) {
	if path == "" {
		return RuleSet{}, fmt.Errorf("no rules file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("reading rules file: %w", err)
	}
	rs, err := Parse(data, FormatForPath(path))
	if err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// FormatForPath infers the rules format from a file name.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes and validates a rules document.
func Parse(data []byte, format Format) (RuleSet, error) {
	entries, err := decode(data, format)
	if err != nil {
		return RuleSet{}, err
	}
	return build(entries)
}

// decode reads the entries of a rules document. Unknown keys are errors,
// so a misspelled key cannot silently drop rules or downgrade them.
func decode(data []byte, format Format) ([]entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("rules file is empty")
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			var list []entry
			if err := decodeJSON(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var doc document
		if err := decodeJSON(trimmed, &doc); err != nil {
			return nil, err
		}
		return doc.entries()
	default:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("parsing rules YAML: %w", err)
		}
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("rules file is empty")
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			var list []entry
			if err := decodeYAML(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var doc document
		if err := decodeYAML(trimmed, &doc); err != nil {
			return nil, err
		}
		return doc.entries()
	}
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing rules JSON: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing rules YAML: %w", err)
	}
	return nil
}

func build(entries []entry) (RuleSet, error) {
	if err := validate(entries); err != nil {
		return RuleSet{}, err
	}
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		r := Rule{
			ID:       strings.TrimSpace(*e.ID),
			Pattern:  *e.Pattern,
			Message:  *e.Message,
			Critical: strings.EqualFold(strings.TrimSpace(e.Severity), "critical"),
		}
		if e.Critical != nil {
			r.Critical = *e.Critical || r.Critical
		}
		if e.Fix != nil {
			r.Fix = *e.Fix
		}
		rules = append(rules, r)
	}
	return RuleSet{Rules: rules}, nil
}

// validate checks every entry for the required fields and unique ids.
// The first problem found is returned; the whole set is rejected.
func validate(entries []entry) error {
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		var missing []string
		if e.ID == nil || strings.TrimSpace(*e.ID) == "" {
			missing = append(missing, "id")
		}
		if e.Pattern == nil || *e.Pattern == "" {
			missing = append(missing, "pattern")
		}
		if e.Message == nil || strings.TrimSpace(*e.Message) == "" {
			missing = append(missing, "message")
		}
		if len(missing) > 0 {
			return fmt.Errorf("rule #%d%s: missing required field(s): %s",
				i+1, labelFor(e), strings.Join(missing, ", "))
		}
		if sev := strings.ToLower(strings.TrimSpace(e.Severity)); sev != "" && sev != "critical" && sev != "warning" {
			return fmt.Errorf("rule #%d%s: unknown severity %q (want critical or warning)", i+1, labelFor(e), e.Severity)
		}
		id := strings.TrimSpace(*e.ID)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("rule #%d: duplicate id %q (first defined as rule #%d)", i+1, id, prev)
		}
		seen[id] = i + 1
	}
	return nil
}

func labelFor(e entry) string {
	if e.ID != nil && strings.TrimSpace(*e.ID) != "" {
		return fmt.Sprintf(" (%s)", strings.TrimSpace(*e.ID))
	}
	return ""
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	return len(rs.Rules)
}

// Get returns the rule with the given id.
func (rs RuleSet) Get(id string) (Rule, bool) {
	for _, r := range rs.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Digest returns a stable SHA-256 over the ordered rules.
func (rs RuleSet) Digest() string {
	h := sha256.New()
	for _, r := range rs.Rules {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%t\x00%s\x01", r.ID, r.Pattern, r.Message, r.Critical, r.Fix)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// PatternError reports a rule whose pattern does not compile.
type PatternError struct {
	RuleID string
	Err    error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("rule %s: invalid pattern: %v", e.RuleID, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Compile compiles the rule's pattern in multi-line mode, so ^ and $ match
// at line boundaries within the added content.
func (r Rule) Compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?m)" + r.Pattern)
	if err != nil {
		return nil, &PatternError{RuleID: r.ID, Err: err}
	}
	return re, nil
}

// Check compiles every pattern and returns one error per rule that fails.
func (rs RuleSet) Check() []error {
	var errs []error
	for _, r := range rs.Rules {
		if _, err := r.Compile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
