package middleware

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

const (
	maxAddressLen  = 256
	maxFileNameLen = 255
)

// ValidateSessionID checks the id is a UUID as issued by the service.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateAddressInput bounds the free-text address field.
func ValidateAddressInput(address string) error {
	if len(address) > maxAddressLen {
		return fmt.Errorf("address too long (max %d characters)", maxAddressLen)
	}
	return nil
}

// ValidateFileName rejects names carrying paths or shell metacharacters.
// Extension rules live in the input controller.
func ValidateFileName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > maxFileNameLen {
		return fmt.Errorf("file name too long (max %d characters)", maxFileNameLen)
	}
	if filepath.Base(name) != name || strings.Contains(name, "..") {
		return fmt.Errorf("file name must not contain a path")
	}

	dangerous := []string{"$(", "`", "&", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
