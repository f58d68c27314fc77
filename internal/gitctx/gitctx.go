package gitctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/stylegate/internal/diff"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	// Dir is the working directory for git commands. Empty means the
	// process working directory.
	Dir          string
	ContextLines int
	MaxDiffBytes int
	Include      []string
	Exclude      []string
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff      string
	Files     []string
	Mode      string
	Range     string
	Repo      RepoMeta
	Truncated bool
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	// A repository with no commits has no HEAD; leave those fields empty.
	head, _ := gitOutput(ctx, dir, "rev-parse", "HEAD")
	branch, _ := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	out, err := gitOutput(ctx, opts.Dir, append([]string{"diff"}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return withMeta(ctx, FromText(out, "unstaged", "", opts), opts), nil
}

// Staged returns the diff of index vs HEAD.
func Staged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	out, err := gitOutput(ctx, opts.Dir, append([]string{"diff", "--cached"}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return withMeta(ctx, FromText(out, "staged", "", opts), opts), nil
}

// Commit returns the diff for a commit against its first parent. A root
// commit is diffed against the empty tree.
func Commit(ctx context.Context, sha string, opts DiffOptions) (DiffResult, error) {
	args := diffArgs(opts)
	out, err := gitOutput(ctx, opts.Dir, append([]string{"diff", sha + "~1", sha}, args...)...)
	if err != nil {
		out, err = gitOutput(ctx, opts.Dir, append([]string{"show", "--format=", sha}, args...)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return withMeta(ctx, FromText(out, "commit", sha, opts), opts), nil
}

// Range returns the combined diff for a revision range. With mergeBase,
// "a..b" is compared from the merge base as "a...b".
func Range(ctx context.Context, revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	out, err := gitOutput(ctx, opts.Dir, append([]string{"diff", diffRange}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return withMeta(ctx, FromText(out, "range", revRange, opts), opts), nil
}

// Snippet presents content as a change to path. Without base the content
// is a new file; with base only the lines that differ from base count as
// added.
func Snippet(ctx context.Context, content, path, base string) (DiffResult, error) {
	if path == "" {
		path = "snippet"
	}
	var text string
	if base == "" {
		text = newFileSection(path, content)
	} else {
		d, err := noIndexDiff(ctx, path, base, content)
		if err != nil {
			return DiffResult{}, err
		}
		text = d
	}
	return DiffResult{
		Diff:  text,
		Files: diff.Paths(text),
		Mode:  "snippet",
	}, nil
}

// noIndexDiff diffs two in-memory versions of path and rewrites the file
// headers so they name path rather than the temporary files.
func noIndexDiff(ctx context.Context, path, base, content string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "stylegate-snippet-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	oldFile := filepath.Join(tmpDir, "old")
	newFile := filepath.Join(tmpDir, "new")
	if err := os.WriteFile(oldFile, []byte(base), 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(newFile, []byte(content), 0o644); err != nil {
		return "", err
	}

	// git diff --no-index exits 1 when the files differ.
	out, err := gitOutput(ctx, "", "diff", "--no-index", oldFile, newFile)
	if err != nil && out == "" {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("git diff --no-index: %w", err)
	}
	hunks := strings.Index(out, "\n@@ ")
	if hunks < 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n--- a/%s\n+++ b/%s", path, path, path, path)
	b.WriteString(out[hunks:])
	return b.String(), nil
}

// FromReader reads a unified diff from r, for example a saved patch file or
// stdin.
func FromReader(r io.Reader, name string, opts DiffOptions) (DiffResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return DiffResult{}, fmt.Errorf("reading diff %s: %w", name, err)
	}
	return FromText(string(data), "diff", name, opts), nil
}

// FromFile reads a unified diff from path; "-" reads stdin.
func FromFile(path string, opts DiffOptions) (DiffResult, error) {
	if path == "-" {
		return FromReader(os.Stdin, "stdin", opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return DiffResult{}, fmt.Errorf("opening diff: %w", err)
	}
	defer f.Close()
	return FromReader(f, path, opts)
}

// FromText filters diff text already in hand, such as a pull request diff
// fetched from GitHub.
func FromText(text, mode, rangeStr string, opts DiffOptions) DiffResult {
	filtered, truncated := Filter(text, opts)
	return DiffResult{
		Diff:      filtered,
		Files:     diff.Paths(filtered),
		Mode:      mode,
		Range:     rangeStr,
		Truncated: truncated,
	}
}

func withMeta(ctx context.Context, res DiffResult, opts DiffOptions) DiffResult {
	if meta, err := GetRepoMeta(ctx, opts.Dir); err == nil {
		res.Repo = meta
	}
	return res
}

func diffArgs(opts DiffOptions) []string {
	var args []string
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

// Filter drops file sections excluded by the include/exclude globs, then
// keeps whole sections until MaxDiffBytes is reached. It reports whether
// any section was dropped for size. Excluded sections never count against
// the budget.
func Filter(text string, opts DiffOptions) (string, bool) {
	var b strings.Builder
	truncated := false
	for _, section := range splitSections(text) {
		if !keepSection(section, opts) {
			continue
		}
		if opts.MaxDiffBytes > 0 && b.Len()+len(section) > opts.MaxDiffBytes {
			truncated = true
			break
		}
		b.WriteString(section)
	}
	return b.String(), truncated
}

func keepSection(section string, opts DiffOptions) bool {
	paths := diff.Paths(section)
	if len(paths) == 0 {
		return true
	}
	path := paths[0]
	if MatchesAny(path, opts.Exclude) {
		return false
	}
	return len(opts.Include) == 0 || MatchesAny(path, opts.Include)
}

// splitSections splits diff text into one section per file. A section
// starts at a "diff --git" header, or at a "--- "/"+++ " header pair that
// is not part of a git section's header block. Hunk bodies are tracked by
// their header counts, so removed or added lines that look like headers
// never split. Text before the first header is its own section.
func splitSections(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	var sections []string
	start := 0  // byte offset of the current section
	offset := 0 // byte offset of lines[i]
	inGit := false
	sawHunk := false
	oldLeft, newLeft := 0, 0

	for i, line := range lines {
		if oldLeft > 0 || newLeft > 0 {
			switch {
			case strings.HasPrefix(line, "-"):
				oldLeft--
			case strings.HasPrefix(line, "+"):
				newLeft--
			case strings.HasPrefix(line, "\\"):
			default:
				oldLeft--
				newLeft--
			}
			offset += len(line)
			continue
		}

		split := false
		switch {
		case strings.HasPrefix(line, "diff --git "):
			split = true
			inGit, sawHunk = true, false
		case strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			if !inGit || sawHunk {
				split = true
				inGit, sawHunk = false, false
			}
		case strings.HasPrefix(line, "@@ "):
			if o, n, ok := hunkCounts(line); ok {
				oldLeft, newLeft = o, n
				sawHunk = true
			}
		}
		if split && offset > start {
			sections = append(sections, text[start:offset])
			start = offset
		}
		offset += len(line)
	}
	return append(sections, text[start:])
}

var hunkRe = regexp.MustCompile(`^@@ -\d+(?:,(\d+))? \+\d+(?:,(\d+))? @@`)

// hunkCounts returns the old and new line counts of a hunk header.
func hunkCounts(line string) (int, int, bool) {
	m := hunkRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	count := func(s string) int {
		if s == "" {
			return 1
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	return count(m[1]), count(m[2]), true
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// "**/" matches any directory prefix and a trailing "/**" matches everything
// below a directory.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && under(path, dir) {
			return true
		}
		if clean, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
			if matched, err := filepath.Match(clean, path); err == nil && matched {
				return true
			}
		}
	}
	return false
}

func under(path, dir string) bool {
	if rest, ok := strings.CutPrefix(dir, "**/"); ok {
		return strings.HasPrefix(path, rest+"/") || strings.Contains(path, "/"+rest+"/")
	}
	return strings.HasPrefix(path, dir+"/")
}

// maxFileBytes is the per-file size limit for codebase review.
const maxFileBytes = 1 << 20

// WalkFiles returns all git-tracked, non-binary files matching the
// include/exclude filters, sorted.
func WalkFiles(ctx context.Context, opts DiffOptions) ([]string, error) {
	out, err := gitOutput(ctx, opts.Dir, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(opts.Include) > 0 && !MatchesAny(line, opts.Include) {
			continue
		}
		if MatchesAny(line, opts.Exclude) {
			continue
		}
		if isBinary(ctx, opts.Dir, line) {
			continue
		}
		files = append(files, line)
	}
	sort.Strings(files)
	return files, nil
}

// isBinary reports binary files, which git numstat shows as "-\t-\t".
func isBinary(ctx context.Context, dir, path string) bool {
	out, _ := gitOutput(ctx, dir, "diff", "--no-index", "--numstat", "/dev/null", path)
	return strings.HasPrefix(strings.TrimSpace(out), "-\t-\t")
}

// Codebase presents every tracked file as a new file so the whole tree is
// checked against the rules.
func Codebase(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	meta, err := GetRepoMeta(ctx, opts.Dir)
	if err != nil {
		return DiffResult{}, err
	}
	files, err := WalkFiles(ctx, opts)
	if err != nil {
		return DiffResult{}, err
	}

	var combined strings.Builder
	var included []string
	truncated := false
	for _, path := range files {
		data, err := os.ReadFile(filepath.Join(opts.Dir, path))
		if err != nil || len(data) > maxFileBytes {
			continue
		}
		section := newFileSection(path, string(data))
		if opts.MaxDiffBytes > 0 && combined.Len()+len(section) > opts.MaxDiffBytes {
			truncated = true
			break
		}
		combined.WriteString(section)
		included = append(included, path)
	}

	return DiffResult{
		Diff:      combined.String(),
		Files:     included,
		Mode:      "codebase",
		Repo:      meta,
		Truncated: truncated,
	}, nil
}

// newFileSection renders content as a git diff adding path.
func newFileSection(path, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
	b.WriteString("new file mode 100644\n")
	b.WriteString("--- /dev/null\n")
	fmt.Fprintf(&b, "+++ b/%s\n", path)
	if content == "" {
		return b.String()
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	fmt.Fprintf(&b, "@@ -0,0 +1,%d @@\n", len(lines))
	for _, line := range lines {
		b.WriteString("+")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
