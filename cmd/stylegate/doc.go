// Stylegate checks the added lines of a diff against regex style rules.
//
// It reviews local git changes, GitHub pull requests, and pull_request
// events inside GitHub Actions, posting inline comments and a commit status
// for each pull request. Exit codes are deterministic for CI gating and git
// hooks.
//
// Usage:
//
//	stylegate review staged                  # check staged changes
//	stylegate review range origin/main..HEAD # check a revision range
//	stylegate review diff change.diff        # check a diff file
//	stylegate github 42                      # review pull request #42
//	stylegate action                         # review inside GitHub Actions
//	stylegate serve --addr :8080             # run the webhook service
//	stylegate rules validate                 # compile every rule pattern
package main
