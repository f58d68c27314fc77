package diff

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/stylegate/internal/logging"
)

// AddedLine is one line introduced by a change.
type AddedLine struct {
	// Number is the line number in the post-change file, from the hunk header.
	Number int
	Text   string
}

// FileChange is the added-line content of one file in a diff.
type FileChange struct {
	Path    string
	OldPath string
	Added   []AddedLine
	New     bool
	Deleted bool
	Renamed bool
	Binary  bool
}

// AddedContent joins the added lines, in diff order, with single newlines.
func (fc FileChange) AddedContent() string {
	if len(fc.Added) == 0 {
		return ""
	}
	var b strings.Builder
	for i, l := range fc.Added {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	return b.String()
}

// FileLine maps a 1-based line within AddedContent to its post-change file
// line number. It returns 0 when the line is out of range.
func (fc FileChange) FileLine(contentLine int) int {
	if contentLine < 1 || contentLine > len(fc.Added) {
		return 0
	}
	return fc.Added[contentLine-1].Number
}

// Options controls parsing.
type Options struct {
	// Extension keeps only files whose path ends with it. Empty keeps all.
	Extension string
	Logger    *slog.Logger
}

type state int

const (
	stateOutside state = iota
	stateHeader
	stateHunk
)

type section struct {
	fc         FileChange
	headerPath string
	sawPlus    bool
	bad        string
	start      int
}

type parser struct {
	ext    string
	logger *slog.Logger
	files  []FileChange

	cur     *section
	state   state
	oldLeft int
	newLeft int
	newLine int
}

// Parse splits diff text into file changes, in diff order.
func Parse(text string, opts Options) []FileChange {
	p := &parser{ext: opts.Extension, logger: logging.OrDiscard(opts.Logger)}
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSuffix(lines[i+1], "\r")
		}
		p.feed(i+1, line, next)
	}
	p.flush()
	return p.files
}

// Paths returns the post-change path of every file in the diff, unfiltered.
func Paths(text string) []string {
	var paths []string
	for _, fc := range Parse(text, Options{}) {
		paths = append(paths, fc.Path)
	}
	return paths
}

func (p *parser) feed(n int, line, next string) {
	if p.state == stateHunk {
		if p.hunkLine(line) {
			return
		}
		p.state = stateHeader
	}

	switch {
	case strings.HasPrefix(line, "diff --git "):
		p.begin(n)
		a, b, ok := parseGitHeader(strings.TrimPrefix(line, "diff --git "))
		if !ok {
			p.cur.bad = "unparseable diff --git header"
			return
		}
		p.cur.fc.OldPath = a
		p.cur.headerPath = b
	case strings.HasPrefix(line, "diff "):
		p.begin(n)
		p.cur.bad = "unsupported diff header " + strconv.Quote(firstField(line, 2))
	case strings.HasPrefix(line, "--- ") && strings.HasPrefix(next, "+++ "):
		if p.cur == nil || p.cur.sawPlus {
			p.begin(n)
		}
		if old := headerPath(strings.TrimPrefix(line, "--- "), "a/"); old == "/dev/null" {
			p.cur.fc.New = true
		} else if old != "" {
			p.cur.fc.OldPath = old
		}
	case p.cur == nil || p.state == stateOutside:
		// preamble (commit message, mail headers) before the first section
	case p.cur.bad != "":
		// skipping the rest of a malformed section
	case strings.HasPrefix(line, "+++ "):
		p.cur.sawPlus = true
		path := headerPath(strings.TrimPrefix(line, "+++ "), "b/")
		if path == "/dev/null" {
			p.cur.fc.Deleted = true
		} else {
			p.cur.fc.Path = path
		}
	case strings.HasPrefix(line, "rename from "):
		p.cur.fc.Renamed = true
		p.cur.fc.OldPath = strings.TrimPrefix(line, "rename from ")
	case strings.HasPrefix(line, "rename to "):
		p.cur.fc.Renamed = true
		if p.cur.fc.Path == "" {
			p.cur.fc.Path = strings.TrimPrefix(line, "rename to ")
		}
	case strings.HasPrefix(line, "new file mode"):
		p.cur.fc.New = true
	case strings.HasPrefix(line, "deleted file mode"):
		p.cur.fc.Deleted = true
	case strings.HasPrefix(line, "Binary files ") || line == "GIT binary patch":
		p.cur.fc.Binary = true
	case strings.HasPrefix(line, "@@"):
		h, ok := parseHunkHeader(line)
		if !ok {
			p.cur.bad = "unparseable hunk header " + strconv.Quote(line)
			return
		}
		p.oldLeft, p.newLeft, p.newLine = h.oldCount, h.newCount, h.newStart
		if p.oldLeft > 0 || p.newLeft > 0 {
			p.state = stateHunk
		}
	}
}

// hunkLine consumes one hunk body line. It returns false when the line is
// not part of the hunk, either because the hunk is complete or because the
// line has no recognizable marker.
func (p *parser) hunkLine(line string) bool {
	if p.oldLeft <= 0 && p.newLeft <= 0 {
		return false
	}
	if line == "" {
		// context line whose single space was stripped in transit
		line = " "
	}
	switch line[0] {
	case '+':
		p.cur.fc.Added = append(p.cur.fc.Added, AddedLine{Number: p.newLine, Text: line[1:]})
		p.newLeft--
		p.newLine++
	case '-':
		p.oldLeft--
	case ' ':
		p.oldLeft--
		p.newLeft--
		p.newLine++
	case '\\':
	default:
		p.oldLeft, p.newLeft = 0, 0
		return false
	}
	return true
}

func (p *parser) begin(n int) {
	p.flush()
	p.cur = &section{start: n}
	p.state = stateHeader
}

func (p *parser) flush() {
	cur := p.cur
	p.cur = nil
	p.state = stateOutside
	p.oldLeft, p.newLeft, p.newLine = 0, 0, 0
	if cur == nil {
		return
	}
	if cur.bad != "" {
		p.logger.Warn("skipping malformed diff section", "line", cur.start, "reason", cur.bad)
		return
	}

	fc := cur.fc
	if fc.Path == "" {
		if fc.Deleted && fc.OldPath != "" {
			fc.Path = fc.OldPath
		} else {
			fc.Path = cur.headerPath
		}
	}
	if fc.Path == "" {
		p.logger.Warn("skipping malformed diff section", "line", cur.start, "reason", "no file path")
		return
	}
	if !strings.HasSuffix(fc.Path, p.ext) {
		p.logger.Debug("ignoring file by extension", "path", fc.Path, "extension", p.ext)
		return
	}
	p.files = append(p.files, fc)
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

type hunkHeader struct {
	oldStart, oldCount int
	newStart, newCount int
}

func parseHunkHeader(line string) (hunkHeader, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return hunkHeader{}, false
	}
	atoi := func(s string, def int) int {
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return n
	}
	return hunkHeader{
		oldStart: atoi(m[1], 0),
		oldCount: atoi(m[2], 1),
		newStart: atoi(m[3], 0),
		newCount: atoi(m[4], 1),
	}, true
}

// parseGitHeader splits the "a/X b/Y" part of a diff --git line.
func parseGitHeader(rest string) (string, string, bool) {
	if strings.HasPrefix(rest, `"`) {
		a, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return "", "", false
		}
		bq := strings.TrimSpace(rest[len(a):])
		ua, err1 := strconv.Unquote(a)
		ub, err2 := unquoteMaybe(bq)
		if err1 != nil || err2 != nil {
			return "", "", false
		}
		return strings.TrimPrefix(ua, "a/"), strings.TrimPrefix(ub, "b/"), true
	}
	if strings.HasPrefix(rest, "a/") {
		if idx := strings.LastIndex(rest, " b/"); idx > 0 {
			return rest[2:idx], rest[idx+3:], true
		}
		if idx := strings.LastIndex(rest, ` "b/`); idx > 0 {
			ub, err := strconv.Unquote(rest[idx+1:])
			if err != nil {
				return "", "", false
			}
			return rest[2:idx], strings.TrimPrefix(ub, "b/"), true
		}
		return "", "", false
	}
	// --no-prefix diffs: "path path" with identical halves
	if len(rest)%2 == 1 {
		half := len(rest) / 2
		if rest[half] == ' ' && rest[:half] == rest[half+1:] && half > 0 {
			return rest[:half], rest[half+1:], true
		}
	}
	return "", "", false
}

// headerPath cleans the path from a ---/+++ line: drops a trailing
// timestamp, unquotes, and strips the a/ or b/ prefix.
func headerPath(s, prefix string) string {
	if idx := strings.IndexByte(s, '\t'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if u, err := unquoteMaybe(s); err == nil {
		s = u
	}
	if s == "/dev/null" {
		return s
	}
	return strings.TrimPrefix(s, prefix)
}

func unquoteMaybe(s string) (string, error) {
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	return s, nil
}

func firstField(line string, n int) string {
	fields := strings.Fields(line)
	if len(fields) < n {
		return line
	}
	return strings.Join(fields[:n], " ")
}
