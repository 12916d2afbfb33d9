// Package sanitize turns untrusted JSON bytes into bounded, escaped,
// policy-redacted documents. The error surface is deliberately small: every
// rejection wraps core.ErrDecode or core.ErrMalformed, and a non-error result
// always re-marshals to valid JSON text.
package sanitize

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"scrub/core"
)

// Default limits, matching the ingest boundary this sanitizer guards.
const (
	DefaultMaxInputBytes   = 1024 * 1024 // 1MB
	DefaultMaxStringLength = 50000
	DefaultMaxDepth        = 20
)

// Options configures a Sanitizer. The zero value gets defaults.
type Options struct {
	// MaxInputBytes rejects larger inputs as malformed before decoding.
	MaxInputBytes int
	// MaxStringLength caps string values; longer strings are truncated
	// with a "..." marker.
	MaxStringLength int
	// MaxDepth rejects documents nested deeper than this as malformed.
	MaxDepth int
	// Policy drives redaction. Nil means DefaultPolicy.
	Policy *Policy
	// RegexTimeout bounds each redaction pattern match.
	RegexTimeout time.Duration
	// Logger receives redaction diagnostics. Optional.
	Logger *zap.SugaredLogger
}

// Sanitizer validates, bounds, escapes, and redacts JSON input. It is
// stateless across calls and safe for concurrent use.
type Sanitizer struct {
	maxInput int
	maxStr   int
	maxDepth int
	redactor *Redactor
}

// New builds a Sanitizer from options.
func New(opts Options) (*Sanitizer, error) {
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	if opts.MaxStringLength <= 0 {
		opts.MaxStringLength = DefaultMaxStringLength
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	redactor, err := NewRedactor(opts.Policy, opts.RegexTimeout, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Sanitizer{
		maxInput: opts.MaxInputBytes,
		maxStr:   opts.MaxStringLength,
		maxDepth: opts.MaxDepth,
		redactor: redactor,
	}, nil
}

// Bytes sanitizes a raw byte input. Invalid UTF-8 is a decode error; the
// string path handles everything past that gate.
func (s *Sanitizer) Bytes(data []byte) (*core.Result, error) {
	if len(data) > s.maxInput {
		return nil, fmt.Errorf("input too large: %d bytes (max %d): %w", len(data), s.maxInput, core.ErrMalformed)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("input is not valid UTF-8: %w", core.ErrDecode)
	}
	return s.String(string(data))
}

// String sanitizes a text input. The input must be well-formed UTF-8; the
// bytes path guarantees that, and callers handing over native strings get
// JSON-level rejection for stray invalid sequences via encoding/json.
func (s *Sanitizer) String(raw string) (*core.Result, error) {
	if len(raw) > s.maxInput {
		return nil, fmt.Errorf("input too large: %d bytes (max %d): %w", len(raw), s.maxInput, core.ErrMalformed)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v: %w", err, core.ErrMalformed)
	}

	result := &core.Result{RawSize: len(raw)}
	value, err := s.walk(doc, 0, result)
	if err != nil {
		return nil, err
	}
	result.Value = value
	return result, nil
}

// walk rebuilds the decoded document bottom-up, applying depth limits,
// escaping, truncation, and redaction. It never mutates the input value.
func (s *Sanitizer) walk(v interface{}, depth int, result *core.Result) (interface{}, error) {
	if depth > s.maxDepth {
		return nil, fmt.Errorf("maximum nesting depth %d exceeded: %w", s.maxDepth, core.ErrMalformed)
	}

	switch val := v.(type) {
	case map[string]interface{}:
		// Keys are visited in sorted order so collision disambiguation is
		// deterministic.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]interface{}, len(val))
		for _, k := range keys {
			key := s.sanitizeKey(k, result)
			// Distinct keys can truncate to the same output key; suffix
			// instead of overwriting.
			for _, taken := out[key]; taken; _, taken = out[key] {
				key += "_"
			}
			if s.redactor.SensitiveKey(k) {
				out[key] = s.redactor.Token()
				result.Redactions++
				continue
			}
			sanitized, err := s.walk(val[k], depth+1, result)
			if err != nil {
				return nil, err
			}
			out[key] = sanitized
		}
		return out, nil

	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			sanitized, err := s.walk(elem, depth+1, result)
			if err != nil {
				return nil, err
			}
			out[i] = sanitized
		}
		return out, nil

	case string:
		return s.sanitizeString(val, result), nil

	default:
		// Numbers, booleans, null pass through untouched.
		return val, nil
	}
}

// sanitizeKey bounds and escapes an object key. Keys are never redacted,
// only values are; a truncated key keeps the document shape stable.
func (s *Sanitizer) sanitizeKey(k string, result *core.Result) string {
	escaped := html.EscapeString(k)
	if len(escaped) > s.maxStr {
		result.Truncations++
		escaped = escaped[:s.maxStr] + "..."
	}
	return escaped
}

// sanitizeString redacts, escapes, and caps a string value, in that order.
// Redaction runs first so patterns see the original text, not entity-escaped
// fragments.
func (s *Sanitizer) sanitizeString(val string, result *core.Result) string {
	redacted, hits := s.redactor.Value(val)
	result.Redactions += hits

	escaped := html.EscapeString(redacted)
	if len(escaped) > s.maxStr {
		result.Truncations++
		escaped = escaped[:s.maxStr] + "..."
	}
	return escaped
}
