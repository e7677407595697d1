package utils_test

import (
	"strings"
	"testing"

	"github.com/navikt/elmo/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "plain string unchanged",
			input:    "room-42",
			expected: "room-42",
		},
		{
			name:     "newlines replaced",
			input:    "line1\nline2",
			expected: "line1 line2",
		},
		{
			name:     "crlf collapsed to one space",
			input:    "line1\r\nline2",
			expected: "line1 line2",
		},
		{
			name:     "format specifiers escaped",
			input:    "100%s",
			expected: "100%%s",
		},
		{
			name:     "tabs replaced",
			input:    "a\tb",
			expected: "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, utils.SanitizeLogString(tt.input))
		})
	}
}

func TestSanitizeLogStringTruncation(t *testing.T) {
	long := strings.Repeat("a", utils.MaxLogStringLength+50)
	result := utils.SanitizeLogString(long)

	assert.True(t, strings.HasSuffix(result, "... (truncated)"))
	assert.LessOrEqual(t, len(result), utils.MaxLogStringLength+len("... (truncated)"))
}
