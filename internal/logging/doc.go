// Package logging builds the structured logger shared by every stylegate
// entry point. Logs go to stderr so reports written to stdout stay clean.
package logging
