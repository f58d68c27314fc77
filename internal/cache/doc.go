// Package cache remembers which pull request revisions stylegate has
// already reviewed.
//
// Entries are small JSON files keyed by a SHA-256 hash of the repository,
// pull request number, head commit and rule set digest. The webhook server
// and the GitHub Action consult the cache before posting, so a redelivered
// event does not produce a second review. Entries expire after a TTL.
//
// The default directory is $XDG_CACHE_HOME/stylegate (or the OS-appropriate
// equivalent).
package cache
