// Package logging contains helpers for keeping credentials out of logs.
package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in connection strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches JWT bearer tokens (three base64url segments).
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Matches user:pass@host connection string credentials.
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Matches a join code embedded in a URL path or query. Codes are
	// exactly 16 alphanumeric characters; the boundary check keeps ordinary
	// path segments from matching.
	accessCodePattern = regexp.MustCompile(`(code[s]?[/=])[A-Za-z0-9]{16}\b`)
)

// SanitizeConnectionString removes credentials from a connection string
// before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError scrubs an error message of tokens and credentials before it
// is logged.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = accessCodePattern.ReplaceAllString(sanitized, "${1}"+RedactedText)

	return sanitized
}

// SanitizePath redacts access codes that appear in a request path so the
// request logger never records a live join code.
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	return accessCodePattern.ReplaceAllString(path, "${1}"+RedactedText)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
