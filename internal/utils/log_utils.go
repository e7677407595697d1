package utils

import (
	"strings"
	"unicode"
)

// MaxLogStringLength defines the maximum length for user-provided strings in logs
const MaxLogStringLength = 200

// SanitizeLogString sanitizes a user-controlled string for safe logging.
// It replaces control characters, limits string length, and escapes format
// specifiers.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	// Truncate long strings
	if len(input) > MaxLogStringLength {
		input = input[:MaxLogStringLength] + "... (truncated)"
	}

	// Pre-process CRLF to avoid double spaces
	input = strings.ReplaceAll(input, "\r\n", "\n")

	// Replace control characters with spaces
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	// Replace % with %% to prevent format string issues
	return strings.ReplaceAll(sanitized, "%", "%%")
}
