// Package gitctx gathers unified diffs for stylegate to review.
//
// Local sources shell out to git: unstaged, staged, commit, range, and
// codebase (every tracked file presented as a new file). Snippet and
// FromReader wrap text that did not come from a repository, and FromText
// applies the same filtering to diffs fetched from GitHub.
//
// Every source filters whole file sections by include/exclude globs and
// stops at a byte budget on a section boundary, so the result always
// parses cleanly.
package gitctx
