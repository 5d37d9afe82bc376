package middleware

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeConfig contains configuration for input sanitization
type SanitizeConfig struct {
	MaxStringLength int  // Maximum allowed string length, in runes
	AllowHTML       bool // Whether to allow HTML in strings
	KeepSpaces      bool // Skip trimming (search text is matched as typed)
}

// DefaultSanitizeConfig returns default sanitization configuration
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaxStringLength: 10000,
		AllowHTML:       false,
	}
}

// SanitizeString sanitizes a string input by:
// - Removing null bytes and control characters (newlines survive)
// - Trimming whitespace unless KeepSpaces is set
// - Escaping HTML entities (if AllowHTML is false)
// - Truncating to max length
func SanitizeString(input string, config SanitizeConfig) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = removeControlChars(input, true)

	if !config.KeepSpaces {
		input = strings.TrimSpace(input)
	}

	if !config.AllowHTML {
		input = html.EscapeString(input)
	}

	if config.MaxStringLength > 0 && utf8.RuneCountInString(input) > config.MaxStringLength {
		input = string([]rune(input)[:config.MaxStringLength])
	}

	return input
}

// SanitizeChatMessage limpa o texto digitado no chat antes de repassá-lo ao chatbot
func SanitizeChatMessage(message string) string {
	return SanitizeString(message, SanitizeConfig{
		MaxStringLength: 2000,
		AllowHTML:       true,
	})
}

// SanitizeSearch limpa o texto de busca sem remover espaços das pontas
func SanitizeSearch(query string) string {
	return SanitizeString(query, SanitizeConfig{
		MaxStringLength: 200,
		AllowHTML:       true,
		KeepSpaces:      true,
	})
}

// SanitizeAdminKey sanitizes an admin key from a form or header
func SanitizeAdminKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.ReplaceAll(key, "\x00", "")
	return removeControlChars(key, false)
}

// removeControlChars removes control characters from a string
func removeControlChars(s string, keepNewlines bool) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && !(keepNewlines && (r == '\n' || r == '\t')) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
