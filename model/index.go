package model

import (
	"regexp"
	"time"
)

// Index names start with a letter followed by letters, digits, underscores or
// hyphens, 1 to 100 characters. Identity is case sensitive.
var indexNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

const maxIndexNameLength = 100

// Index is a named, independently addressable collection of chunks.
type Index struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateIndexName checks a collection name against the naming rules.
// It is called before any store operation touches the name.
func ValidateIndexName(name string) error {
	if name == "" {
		return NewInvalidInput(name, "index name must not be empty")
	}
	if len(name) > maxIndexNameLength {
		return NewInvalidInput(name, "index name must be at most 100 characters")
	}
	if !indexNamePattern.MatchString(name) {
		return NewInvalidInput(name, "index name must start with a letter and contain only letters, digits, underscores or hyphens")
	}
	return nil
}
