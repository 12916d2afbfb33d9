package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "wrapped decode error",
			err:      fmt.Errorf("input is not valid UTF-8: %w", ErrDecode),
			expected: ReasonDecodeError,
		},
		{
			name:     "wrapped malformed error",
			err:      fmt.Errorf("invalid JSON: %w", ErrMalformed),
			expected: ReasonMalformed,
		},
		{
			name:     "bare sentinel",
			err:      ErrMalformed,
			expected: ReasonMalformed,
		},
		{
			name:     "error outside the taxonomy",
			err:      errors.New("internal assertion"),
			expected: "",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RejectReason(tt.err))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "crash", OutcomeCrash.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
