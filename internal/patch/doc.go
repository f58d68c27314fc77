// Package patch turns rule fixes into reviewable patches.
//
// For every violation whose rule carries a fix, the matched text in the
// added line is replaced by the fix and the before/after pair is rendered
// as a diff-match-patch patch. The output is meant for humans to apply or
// paste, not for git apply.
package patch
