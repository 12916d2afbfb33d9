package sanitize

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// DefaultRegexTimeout bounds a single pattern match. regexp2 enforces the
// timeout inside its backtracker, so a pathological input cannot stall the
// sanitizer.
const DefaultRegexTimeout = 500 * time.Millisecond

type compiledRule struct {
	name        string
	re          *regexp2.Regexp
	replacement string
}

// Redactor applies a Policy to keys and string values. It is immutable after
// construction and safe for concurrent use.
type Redactor struct {
	keys    map[string]bool
	rules   []compiledRule
	token   string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewRedactor compiles a policy. The policy must already be validated; an
// uncompilable pattern is still reported as an error rather than a panic.
func NewRedactor(policy *Policy, timeout time.Duration, logger *zap.SugaredLogger) (*Redactor, error) {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}

	keys := make(map[string]bool, len(policy.SensitiveKeys))
	for _, k := range policy.SensitiveKeys {
		keys[strings.ToLower(k)] = true
	}

	rules := make([]compiledRule, 0, len(policy.Patterns))
	for _, rule := range policy.Patterns {
		re, err := regexp2.Compile(rule.Pattern, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to compile redaction pattern %q: %w", rule.Name, err)
		}
		re.MatchTimeout = timeout

		replacement := rule.Replacement
		if replacement == "" {
			replacement = policy.ReplaceToken
		}
		rules = append(rules, compiledRule{name: rule.Name, re: re, replacement: replacement})
	}

	return &Redactor{
		keys:    keys,
		rules:   rules,
		token:   policy.ReplaceToken,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Token returns the policy's replace token.
func (r *Redactor) Token() string {
	return r.token
}

// SensitiveKey reports whether an object key's value must be replaced
// wholesale. Matching is case-insensitive.
func (r *Redactor) SensitiveKey(key string) bool {
	return r.keys[strings.ToLower(key)]
}

// Value applies the pattern rules to a string value. It returns the rewritten
// string and the number of rules that matched. A pattern timeout counts as a
// miss for that rule, never an error: redaction must not turn adversarial
// input into a sanitizer failure.
func (r *Redactor) Value(s string) (string, int) {
	if s == "" || len(r.rules) == 0 {
		return s, 0
	}

	hits := 0
	result := s
	for _, rule := range r.rules {
		rewritten, err := rule.re.Replace(result, rule.replacement, -1, -1)
		if err != nil {
			// Timeout or internal matcher error. The value passes through
			// unredacted by this rule; log so a vulnerable pattern is visible.
			if r.logger != nil {
				r.logger.Warnw("Redaction pattern aborted",
					"rule", rule.name,
					"timeout", r.timeout,
					"input_length", len(result),
					"error", err)
			}
			continue
		}
		if rewritten != result {
			hits++
			result = rewritten
		}
	}
	return result, hits
}
