// Package review checks diffs against a rule set and decides a verdict.
//
// [Match] applies each rule's pattern to one file's added content and
// reports every match with its line. [Analyze] does that for a whole
// change set, optionally in parallel, keeping the order deterministic.
// [Aggregate] and [Tally] reduce violations to a [Verdict]: clean,
// violations, or critical. [Run] ties these together into a [Report].
package review
