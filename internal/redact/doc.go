// Package redact removes secrets from matched text before stylegate prints
// it or posts it to a pull request.
//
// Detection uses regex heuristics for common secret shapes such as cloud
// access keys, JWTs, private key headers, bearer tokens and vendor tokens.
// Files whose paths match configured globs have their matched text replaced
// wholesale.
package redact
