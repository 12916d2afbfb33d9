package harness

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrub/core"
	"scrub/sanitize"
)

// brokenTarget simulates sanitizer defects: arbitrary errors, panics, nil
// results, and values that cannot be re-encoded.
type brokenTarget struct {
	result *core.Result
	err    error
	panics bool
}

func (b *brokenTarget) Bytes(data []byte) (*core.Result, error) {
	if b.panics {
		panic("internal assertion failed")
	}
	return b.result, b.err
}

func (b *brokenTarget) String(raw string) (*core.Result, error) {
	return b.Bytes([]byte(raw))
}

func newRealHarness(t *testing.T) *Harness {
	t.Helper()
	s, err := sanitize.New(sanitize.Options{})
	require.NoError(t, err)
	return New(s)
}

func TestExecBytes_Success(t *testing.T) {
	h := newRealHarness(t)

	rep := h.ExecBytes([]byte(`{"a": 1}`))
	assert.Equal(t, core.OutcomeOK, rep.Outcome)
	assert.Empty(t, rep.Reason)
	assert.NoError(t, rep.Err)
	assert.JSONEq(t, `{"a": 1}`, string(rep.Encoded))
}

func TestExecBytes_EmptyInput(t *testing.T) {
	// Empty input is either a malformed rejection or a round-tripping
	// value; it must never classify as a crash.
	h := newRealHarness(t)

	rep := h.ExecBytes(nil)
	assert.NotEqual(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, core.OutcomeRejected, rep.Outcome)
	assert.Equal(t, core.ReasonMalformed, rep.Reason)
}

func TestExecBytes_InvalidUTF8IsExpected(t *testing.T) {
	h := newRealHarness(t)

	rep := h.ExecBytes([]byte{0x80})
	assert.Equal(t, core.OutcomeRejected, rep.Outcome)
	assert.Equal(t, core.ReasonDecodeError, rep.Reason)
	assert.Empty(t, rep.Diagnostic)
}

func TestExecString_LossyDecodeDropsBadBytes(t *testing.T) {
	// The same invalid byte that the bytes path rejects as a decode error
	// is silently dropped on the string path; what remains is judged as
	// text. A decode-error classification is impossible here.
	h := newRealHarness(t)

	rep := h.ExecString(append([]byte(`{"a": 1`), 0x80, '}'))
	assert.Equal(t, core.OutcomeOK, rep.Outcome, "dropping 0x80 leaves valid JSON")

	rep = h.ExecString([]byte{0x80})
	assert.Equal(t, core.OutcomeRejected, rep.Outcome)
	assert.Equal(t, core.ReasonMalformed, rep.Reason, "empty after lossy decode is malformed, not a decode error")
}

func TestExec_UnexpectedErrorIsCrash(t *testing.T) {
	h := New(&brokenTarget{err: errors.New("boom")})

	rep := h.ExecBytes([]byte(`{}`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonUnexpectedError, rep.Reason)
	assert.NotEmpty(t, rep.Diagnostic)
}

func TestExec_PanicIsCrash(t *testing.T) {
	h := New(&brokenTarget{panics: true})

	rep := h.ExecBytes([]byte(`{"trigger": true}`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonPanic, rep.Reason)
	require.Error(t, rep.Err)
	assert.Contains(t, rep.Err.Error(), "internal assertion failed")
}

func TestExec_NilResultIsCrash(t *testing.T) {
	h := New(&brokenTarget{})

	rep := h.ExecBytes([]byte(`{}`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonNilResult, rep.Reason)
}

func TestExec_UnencodableResultIsCrash(t *testing.T) {
	h := New(&brokenTarget{result: &core.Result{Value: make(chan int)}})

	rep := h.ExecBytes([]byte(`{}`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonReencodeFailure, rep.Reason)
}

func TestExec_DecodeErrorOutsideBytesPathIsCrash(t *testing.T) {
	// A decode error surfacing on the string path means the lossy
	// pre-decode contract was violated; the allow-list there excludes it.
	h := New(&brokenTarget{err: fmt.Errorf("late decode: %w", core.ErrDecode)})

	rep := h.ExecString([]byte(`{}`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonUnexpectedError, rep.Reason)
}

func TestExec_SchemaViolationIsCrash(t *testing.T) {
	s, err := sanitize.New(sanitize.Options{})
	require.NoError(t, err)

	schemaOpt, err := WithSchema([]byte(`{"type": "object"}`))
	require.NoError(t, err)
	h := New(s, schemaOpt)

	rep := h.ExecBytes([]byte(`{"a": 1}`))
	assert.Equal(t, core.OutcomeOK, rep.Outcome)

	rep = h.ExecBytes([]byte(`[1, 2]`))
	assert.Equal(t, core.OutcomeCrash, rep.Outcome)
	assert.Equal(t, ReasonSchemaViolation, rep.Reason)
}

func TestWithSchema_BadSchema(t *testing.T) {
	_, err := WithSchema([]byte(`{"type": ["not", 1, "valid"`))
	assert.Error(t, err)
}

func TestCrashDiagnosticIsBounded(t *testing.T) {
	h := New(&brokenTarget{err: errors.New("boom")})

	input := bytes.Repeat([]byte{'x'}, 5000)
	rep := h.ExecBytes(input)
	require.Equal(t, core.OutcomeCrash, rep.Outcome)

	assert.Contains(t, rep.Diagnostic, strings.Repeat("x", DiagnosticBytes))
	assert.NotContains(t, rep.Diagnostic, strings.Repeat("x", DiagnosticBytes+1))
	assert.Contains(t, rep.Diagnostic, "5000 bytes total")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "empty",
			input:    nil,
			expected: `""`,
		},
		{
			name:     "short input quoted whole",
			input:    []byte("abc"),
			expected: `"abc"`,
		},
		{
			name:     "exactly at the bound",
			input:    bytes.Repeat([]byte{'a'}, DiagnosticBytes),
			expected: `"` + strings.Repeat("a", DiagnosticBytes) + `"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input))
		})
	}
}

func TestExec_Deterministic(t *testing.T) {
	// Identical input must yield identical classification
	h := newRealHarness(t)
	input := []byte(`{"password": "x", "n": [1, {"broken": "<b>"}]}`)

	first := h.ExecBytes(input)
	second := h.ExecBytes(input)
	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, string(first.Encoded), string(second.Encoded))
}
