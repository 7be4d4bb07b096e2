package rag

import (
	"fmt"
	"strings"
)

const (
	MinQueryLength = 3
	MaxQueryLength = 2000
)

// ValidationError rejects a query before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateQuery trims the query and checks its length.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &ValidationError{Field: "query", Message: "Please enter a question"}
	}
	if len([]rune(q)) < MinQueryLength {
		return "", &ValidationError{Field: "query", Message: fmt.Sprintf("Query must be at least %d characters", MinQueryLength)}
	}
	if len([]rune(q)) > MaxQueryLength {
		return "", &ValidationError{Field: "query", Message: fmt.Sprintf("Query must be at most %d characters", MaxQueryLength)}
	}
	return q, nil
}
