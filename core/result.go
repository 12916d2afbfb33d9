package core

// Result is the envelope for a successfully sanitized document. A successful
// sanitization always returns a non-nil Result, even when the document is the
// JSON literal null: the envelope, not the value, carries the success.
type Result struct {
	// Value is the sanitized document, built from the types encoding/json
	// produces (map[string]interface{}, []interface{}, string, float64,
	// bool, nil). It always re-marshals to valid JSON text.
	Value interface{}

	// RawSize is the size in bytes of the original input.
	RawSize int

	// Redactions counts values replaced or rewritten by the redaction
	// policy.
	Redactions int

	// Truncations counts strings capped at the maximum string length.
	Truncations int
}

// Outcome classifies a single harness invocation.
type Outcome int

const (
	// OutcomeOK means the sanitizer returned a value that passed all
	// post-conditions.
	OutcomeOK Outcome = iota

	// OutcomeRejected means the sanitizer failed with an error from the
	// expected taxonomy (decode error or malformed input).
	OutcomeRejected

	// OutcomeCrash means the sanitizer failed outside the taxonomy,
	// panicked, or returned a value violating a post-condition.
	OutcomeCrash
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCrash:
		return "crash"
	default:
		return "unknown"
	}
}
