package validator

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIndexRequest(t *testing.T) {
	tests := []struct {
		name   string
		paths  []string
		fields map[string]string
	}{
		{name: "valid", paths: []string{"/data/a.txt", "b.txt"}},
		{name: "empty", paths: nil, fields: map[string]string{"paths": "at least one path is required"}},
		{name: "blank entry", paths: []string{"/a", "  "}, fields: map[string]string{"paths[1]": "path is required"}},
		{name: "nul byte", paths: []string{"/a\x00b"}, fields: map[string]string{"paths[0]": "path must not contain NUL bytes"}},
		{name: "too long", paths: []string{"/" + strings.Repeat("a", maxPathLength)}, fields: map[string]string{"paths[0]": "path must be at most 4096 bytes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexRequest(&ingestion.IndexRequest{Paths: tt.paths})
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestTooManyPaths(t *testing.T) {
	paths := make([]string, maxPaths+1)
	for i := range paths {
		paths[i] = "/a"
	}
	err := ValidateIndexRequest(&ingestion.IndexRequest{Paths: paths})
	assert.EqualError(t, err, "paths: at most 1000 paths per request")
}
