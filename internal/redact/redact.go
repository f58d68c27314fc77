package redact

import (
	"regexp"

	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/gitctx"
	"github.com/dshills/stylegate/internal/review"
)

const placeholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	// JDBC URLs with inline credentials.
	regexp.MustCompile(`jdbc:[a-z]+://[^\s:/@]+:[^\s@]+@`),
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllLiteralString(text, placeholder)
	}
	return text
}

// ShouldRedactPath reports whether path matches any redaction glob.
func ShouldRedactPath(path string, patterns []string) bool {
	return gitctx.MatchesAny(path, patterns)
}

// Violations returns a copy of vs with secrets removed from each matched
// snippet. Violations in files matching redactPaths lose the snippet
// entirely.
func Violations(vs []review.Violation, redactPaths []string) []review.Violation {
	if vs == nil {
		return nil
	}
	out := make([]review.Violation, len(vs))
	for i, v := range vs {
		if ShouldRedactPath(v.Path, redactPaths) {
			v.Match = placeholder
		} else {
			v.Match = Secrets(v.Match)
		}
		out[i] = v
	}
	return out
}

// Report returns r with its violations redacted according to p. The input
// report is not modified. When secret redaction is off r is returned as is.
func Report(r *review.Report, p config.PrivacyConfig) *review.Report {
	if r == nil || !p.RedactSecrets {
		return r
	}
	cp := *r
	cp.Violations = Violations(r.Violations, p.RedactPaths)
	return &cp
}
