// Package github is stylegate's GitHub collaborator.
//
// [Client] wraps go-github to fetch pull request and compare diffs, post a
// review with one inline comment per violation, and set a commit status
// for the verdict. Rate limits and server errors are retried with
// exponential backoff; authentication failures are not.
//
// [BuildReview] and [StatusFor] turn review results into GitHub payloads
// without touching the network. The package also locates the repository
// from the git remote or an Actions event file, and validates and parses
// pull_request webhooks.
package github
