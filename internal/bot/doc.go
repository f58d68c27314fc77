// Package bot runs the pull request pipeline: fetch the diff, check it
// against the rule set, post a review, set the commit status and record
// the run.
//
// Only the diff fetch is fatal. Failures posting the review, setting the
// status or saving the run are logged and counted, and never stop the
// other steps. A run for a head commit and rule set that was already
// reviewed is answered from the cache without posting again.
package bot
