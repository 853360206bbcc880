package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// uuidPattern matches the standard 8-4-4-4-12 hex UUID format
var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// ValidateIncidentUUID validates that a UUID is properly formatted
func ValidateIncidentUUID(uuid string) error {
	if uuid == "" {
		return fmt.Errorf("incident UUID is required")
	}
	if !uuidPattern.MatchString(strings.ToLower(uuid)) {
		return fmt.Errorf("invalid UUID format")
	}
	return nil
}

// EscapeForLogging escapes model output for safe single-line logging
func EscapeForLogging(text string, maxLen int) string {
	// Truncate
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}

	// Remove newlines for single-line logging
	text = strings.ReplaceAll(text, "\n", "\\n")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = strings.ReplaceAll(text, "\t", "\\t")

	return text
}
