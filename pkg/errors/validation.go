package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSourceName validates a source name supplied on the command line or
// in a config file.
//
// Source names end up in log lines, cache keys and JSON output, so the rules
// are conservative:
//   - No empty names
//   - No control characters
//   - Lowercase letters, digits, '-', '_' and '.' only
//   - Maximum length of 64 characters
func ValidateSourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "source name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "source name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "source name contains invalid control characters")
		}
	}

	if !sourceNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid source name: %q", name)
	}

	return nil
}

var sourceNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateRelease validates a release identifier. Releases are substituted
// into URLs, so path traversal sequences and separators are rejected. The
// rolling sentinel "(rolling)" is accepted.
func ValidateRelease(release string) error {
	if len(release) > 64 {
		return New(ErrCodeInvalidInput, "release too long (max 64 characters)")
	}

	for _, r := range release {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "release contains invalid characters")
		}
	}

	dangerousPatterns := []string{
		"..",
		"/",
		"\\",
		"?",
		"#",
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(release, pattern) {
			return New(ErrCodeInvalidInput, "release contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateURL validates a URL template for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
