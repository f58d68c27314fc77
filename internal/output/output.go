package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/stylegate/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "github":
		return &GitHubWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *review.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if outPath == "" {
		return writer.Write(os.Stdout, report)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// fileGroup is the violations of one file, in report order.
type fileGroup struct {
	Path       string
	Violations []review.Violation
}

// groupByFile groups violations by path, keeping the order in which paths
// first appear.
func groupByFile(vs []review.Violation) []fileGroup {
	var groups []fileGroup
	idx := map[string]int{}
	for _, v := range vs {
		i, ok := idx[v.Path]
		if !ok {
			i = len(groups)
			idx[v.Path] = i
			groups = append(groups, fileGroup{Path: v.Path})
		}
		groups[i].Violations = append(groups[i].Violations, v)
	}
	return groups
}

func countCritical(vs []review.Violation) int {
	n := 0
	for _, v := range vs {
		if v.Critical {
			n++
		}
	}
	return n
}

func severityLabel(v review.Violation) string {
	if v.Critical {
		return "critical"
	}
	return "warning"
}
