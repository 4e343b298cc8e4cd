package validation

import (
	"testing"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title    string   `json:"title" validate:"required,max=10"`
	Severity string   `json:"severity" validate:"omitempty,oneof=Low High"`
	Keywords []string `json:"keywords" validate:"required,min=1,dive,required"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name     string
		input    sample
		expected string
	}{
		{name: "missing title", input: sample{Keywords: []string{"a"}}, expected: "title is required"},
		{name: "title too long", input: sample{Title: "abcdefghijk", Keywords: []string{"a"}}, expected: "title must be at most 10 characters"},
		{name: "bad enum", input: sample{Title: "t", Severity: "Meh", Keywords: []string{"a"}}, expected: "severity must be one of: Low, High"},
		{name: "empty keyword list", input: sample{Title: "t", Keywords: []string{}}, expected: "keywords must have at least 1 item(s)"},
		{name: "blank keyword", input: sample{Title: "t", Keywords: []string{""}}, expected: "keywords[0] is required"},
		{name: "bad email", input: sample{Title: "t", Keywords: []string{"a"}, Email: "nope"}, expected: "email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.expected, apperr.Message(err))
		})
	}

	assert.NoError(t, Struct(sample{Title: "ok", Severity: "Low", Keywords: []string{"a"}}))
}
