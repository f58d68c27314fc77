// Package diff turns unified-diff text into per-file records of added lines.
//
// The parser is a small line state machine with three states: outside any
// file, inside a file header, and inside a hunk. Hunk bodies are consumed by
// the line counts in their @@ header, so an added line whose text starts with
// "++" is never mistaken for a file header. Context lines, removed lines, and
// "\ No newline at end of file" markers are dropped.
//
// A section whose header or hunk header cannot be parsed is skipped with a
// warning and parsing continues with the next section; [Parse] never fails.
// Files whose path does not end in the configured extension are dropped
// before rule matching ever sees them.
package diff
