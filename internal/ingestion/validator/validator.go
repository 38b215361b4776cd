// Package validator checks index requests before anything is queued and
// returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
)

const (
	maxPaths      = 1000
	maxPathLength = 4096
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrInvalidInput }

// ValidatePath reports what is wrong with a single path, or "".
func ValidatePath(path string) string {
	switch {
	case strings.TrimSpace(path) == "":
		return "path is required"
	case len(path) > maxPathLength:
		return fmt.Sprintf("path must be at most %d bytes", maxPathLength)
	case strings.ContainsRune(path, 0):
		return "path must not contain NUL bytes"
	}
	return ""
}

// ValidateIndexRequest checks the number of paths and each path.
func ValidateIndexRequest(req *ingestion.IndexRequest) error {
	errs := make(map[string]string)
	switch {
	case len(req.Paths) == 0:
		errs["paths"] = "at least one path is required"
	case len(req.Paths) > maxPaths:
		errs["paths"] = fmt.Sprintf("at most %d paths per request", maxPaths)
	default:
		for i, p := range req.Paths {
			if msg := ValidatePath(p); msg != "" {
				errs[fmt.Sprintf("paths[%d]", i)] = msg
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
