// Package ruleset loads and validates the style rules stylegate matches
// against added diff lines.
//
// A rules file is YAML or JSON. It is either a bare list of entries or a
// mapping with a "rules" list:
//
//	rules:
//	  - id: AVOID_NULL_RETURN
//	    pattern: 'return\s+null;'
//	    message: Return Optional.empty() instead of null.
//	    critical: true
//	    fix: return Optional.empty();
//
// Missing id, pattern, or message on any entry aborts the load; no partial
// rule set is ever returned. Patterns are not compiled here: a pattern that
// fails to compile is skipped by the matcher for the file being analyzed, so
// one bad rule never hides the others. Use [RuleSet.Check] to surface such
// patterns ahead of time.
package ruleset
