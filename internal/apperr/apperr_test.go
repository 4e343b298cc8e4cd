package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "Validation", err: Validation("title is required"), expected: KindValidation},
		{name: "Wrapped not found", err: fmt.Errorf("scan: %w", NotFound("alert")), expected: KindNotFound},
		{name: "Conflict", err: Conflict("duplicate"), expected: KindConflict},
		{name: "Precondition", err: Precondition("inactive"), expected: KindPrecondition},
		{name: "Unauthorized", err: Unauthorized("bad token", errors.New("expired")), expected: KindUnauthorized},
		{name: "Plain error", err: errors.New("connection refused"), expected: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestMessage_HidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("dial tcp 10.0.0.1:5432: refused")))
	assert.Equal(t, "alert not found", Message(fmt.Errorf("wrapped: %w", NotFound("alert"))))
	assert.True(t, Is(NotFound("post"), KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
}
