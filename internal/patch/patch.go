package patch

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/review"
)

// Generate renders one patch per fixable violation, in violation order.
// lineMapping says how violation lines were numbered ("content" or "file").
// Violations that cannot be located, or whose match spans lines, are
// skipped with a warning written to w (may be nil).
func Generate(files []diff.FileChange, violations []review.Violation, lineMapping string, w io.Writer) string {
	byPath := make(map[string]diff.FileChange, len(files))
	for _, f := range files {
		if _, ok := byPath[f.Path]; !ok {
			byPath[f.Path] = f
		}
	}

	dmp := diffmatchpatch.New()
	var out strings.Builder
	for _, v := range violations {
		if v.Fix == "" {
			continue
		}
		before, ok := addedLine(byPath[v.Path], v.Line, lineMapping)
		if !ok {
			warn(w, "no added line %s:%d for %s", v.Path, v.Line, v.RuleID)
			continue
		}
		after, ok := applyFix(before, v)
		if !ok {
			warn(w, "match for %s at %s:%d could not be replaced", v.RuleID, v.Path, v.Line)
			continue
		}

		diffs := dmp.DiffMain(before, after, false)
		text := dmp.PatchToText(dmp.PatchMake(before, diffs))
		if text == "" {
			continue
		}
		fmt.Fprintf(&out, "# fix for %s at %s:%d\n", v.RuleID, v.Path, v.Line)
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String()
}

func addedLine(fc diff.FileChange, line int, lineMapping string) (string, bool) {
	if lineMapping == review.LineFile {
		for _, a := range fc.Added {
			if a.Number == line {
				return a.Text, true
			}
		}
		return "", false
	}
	if line < 1 || line > len(fc.Added) {
		return "", false
	}
	return fc.Added[line-1].Text, true
}

// applyFix replaces the violation's match, found at its column, with the
// rule's fix.
func applyFix(line string, v review.Violation) (string, bool) {
	if v.Match == "" || strings.Contains(v.Match, "\n") {
		return "", false
	}
	start := v.Column - 1
	if start < 0 || start+len(v.Match) > len(line) || line[start:start+len(v.Match)] != v.Match {
		start = strings.Index(line, v.Match)
		if start < 0 {
			return "", false
		}
	}
	return line[:start] + v.Fix + line[start+len(v.Match):], true
}

func warn(w io.Writer, format string, args ...any) {
	if w != nil {
		fmt.Fprintf(w, "WARN: "+format+"\n", args...)
	}
}
