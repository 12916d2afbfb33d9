// Package harness classifies sanitizer invocations into ok / rejected /
// crash. Rejections are the sanitizer doing its job; anything else — an
// error outside the taxonomy, a panic, a nil result, output that does not
// re-marshal, or a schema violation — is a crash worth persisting.
package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"scrub/core"
)

// DiagnosticBytes bounds how much of a crashing input a diagnostic quotes.
const DiagnosticBytes = 100

// Crash reason categories beyond the sanitizer's own taxonomy.
const (
	ReasonUnexpectedError = "unexpected_error"
	ReasonPanic           = "panic"
	ReasonNilResult       = "nil_result"
	ReasonReencodeFailure = "reencode_failure"
	ReasonSchemaViolation = "schema_violation"
)

// Target is the sanitization boundary under test. *sanitize.Sanitizer
// satisfies it; tests substitute broken implementations to exercise the
// crash paths.
type Target interface {
	Bytes(data []byte) (*core.Result, error)
	String(raw string) (*core.Result, error)
}

// Report is the classification of a single invocation.
type Report struct {
	Outcome core.Outcome
	// Reason categorizes the outcome: a core.Reason* value for rejections,
	// a harness Reason* value for crashes, empty for ok.
	Reason string
	// Err is the underlying failure, nil for ok.
	Err error
	// Diagnostic quotes at most DiagnosticBytes of the input. Only set for
	// crashes.
	Diagnostic string
	// Encoded is the re-marshaled output for ok outcomes.
	Encoded []byte
}

// Harness wraps a Target with outcome classification.
type Harness struct {
	target Target
	schema *gojsonschema.Schema
	logger *zap.SugaredLogger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger makes the harness log crash diagnostics as they happen.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithSchema adds a JSON-schema gate on re-encoded output. Output that
// decodes and re-marshals but violates the schema is classified as a crash.
func WithSchema(schemaJSON []byte) (Option, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile output schema: %w", err)
	}
	return func(h *Harness) { h.schema = schema }, nil
}

// New builds a Harness around a target.
func New(target Target, opts ...Option) *Harness {
	h := &Harness{target: target}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ExecBytes runs the bytes entry path. Decode errors and malformed input are
// expected rejections; everything else is a crash.
func (h *Harness) ExecBytes(data []byte) Report {
	return h.exec(data, true, func() (*core.Result, error) {
		return h.target.Bytes(data)
	})
}

// ExecString runs the text entry path. The raw bytes are decoded lossily —
// invalid sequences are dropped, not rejected — so the target always receives
// well-formed text and a decode-error classification is impossible here.
func (h *Harness) ExecString(data []byte) Report {
	text := strings.ToValidUTF8(string(data), "")
	return h.exec(data, false, func() (*core.Result, error) {
		return h.target.String(text)
	})
}

// exec is the shared classification. allowDecode widens the expected-error
// allow-list to include decode errors (bytes path only).
func (h *Harness) exec(input []byte, allowDecode bool, run func() (*core.Result, error)) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			rep = h.crash(ReasonPanic, fmt.Errorf("sanitizer panic: %v", r), input)
		}
	}()

	result, err := run()
	if err != nil {
		if errors.Is(err, core.ErrMalformed) || (allowDecode && errors.Is(err, core.ErrDecode)) {
			return Report{Outcome: core.OutcomeRejected, Reason: core.RejectReason(err), Err: err}
		}
		return h.crash(ReasonUnexpectedError, err, input)
	}

	if result == nil {
		return h.crash(ReasonNilResult, errors.New("sanitizer returned no result without error"), input)
	}

	encoded, err := json.Marshal(result.Value)
	if err != nil {
		return h.crash(ReasonReencodeFailure, fmt.Errorf("sanitized value does not re-marshal: %w", err), input)
	}

	if h.schema != nil {
		outcome, err := h.schema.Validate(gojsonschema.NewBytesLoader(encoded))
		if err != nil {
			return h.crash(ReasonSchemaViolation, fmt.Errorf("schema validation error: %w", err), input)
		}
		if !outcome.Valid() {
			return h.crash(ReasonSchemaViolation, fmt.Errorf("output violates schema: %v", outcome.Errors()), input)
		}
	}

	return Report{Outcome: core.OutcomeOK, Encoded: encoded}
}

// crash builds a crash report with a bounded diagnostic and logs it.
func (h *Harness) crash(reason string, err error, input []byte) Report {
	diagnostic := Truncate(input)
	if h.logger != nil {
		h.logger.Errorw("Unexpected sanitizer failure",
			"reason", reason,
			"error", err,
			"input", diagnostic,
			"input_length", len(input))
	}
	return Report{
		Outcome:    core.OutcomeCrash,
		Reason:     reason,
		Err:        err,
		Diagnostic: diagnostic,
	}
}

// Truncate quotes at most DiagnosticBytes of an input for diagnostics.
func Truncate(input []byte) string {
	if len(input) <= DiagnosticBytes {
		return fmt.Sprintf("%q", input)
	}
	return fmt.Sprintf("%q... (%d bytes total)", input[:DiagnosticBytes], len(input))
}
