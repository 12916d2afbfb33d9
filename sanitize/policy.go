package sanitize

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scrub/util"
)

// maxPolicyFileSize bounds policy files to protect against memory exhaustion
const maxPolicyFileSize = 1024 * 1024 // 1MB

// PatternRule is a single value-redaction rule in a policy.
type PatternRule struct {
	// Name identifies the rule in logs and metrics.
	Name string `yaml:"name"`
	// Pattern is the regular expression applied to string values.
	Pattern string `yaml:"pattern"`
	// Replacement substitutes matched text. Empty means the policy's
	// replace token.
	Replacement string `yaml:"replacement"`
}

// Policy describes what the sanitizer redacts. Policies are loaded once at
// startup; the sanitizer never mutates them.
type Policy struct {
	// SensitiveKeys lists object keys whose values are replaced wholesale
	// with the replace token. Matching is case-insensitive.
	SensitiveKeys []string `yaml:"sensitive_keys"`
	// Patterns are value-level redaction rules.
	Patterns []PatternRule `yaml:"patterns"`
	// ReplaceToken substitutes redacted values. Defaults to "REDACTED".
	ReplaceToken string `yaml:"replace_token"`
}

// DefaultPolicy returns the built-in redaction policy used when no policy
// file is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		SensitiveKeys: []string{
			"password",
			"passwd",
			"pwd",
			"token",
			"auth",
			"authorization",
			"api_key",
			"apikey",
			"api-key",
			"secret",
			"client_secret",
			"client-secret",
			"access_token",
			"refresh_token",
			"private_key",
			"aws_secret_access_key",
			"credential",
			"credentials",
		},
		Patterns: []PatternRule{
			{
				Name:        "aws_access_key",
				Pattern:     `AKIA[0-9A-Z]{16}`,
				Replacement: "REDACTED_AWS_KEY",
			},
			{
				Name:        "jwt",
				Pattern:     `eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`,
				Replacement: "REDACTED_JWT",
			},
			{
				Name:        "bearer_token",
				Pattern:     `(?i)bearer\s+[a-zA-Z0-9_\-\.]+`,
				Replacement: "bearer REDACTED",
			},
			{
				Name:        "credit_card",
				Pattern:     `\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`,
				Replacement: "REDACTED_CC",
			},
		},
		ReplaceToken: "REDACTED",
	}
}

// LoadPolicy reads and validates a YAML policy file. Unknown fields and
// unsafe patterns are load-time errors, so a bad policy never reaches the
// sanitizer.
func LoadPolicy(path string) (*Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy file: %w", err)
	}
	if info.Size() > maxPolicyFileSize {
		return nil, fmt.Errorf("policy file too large: %d bytes (max %d)", info.Size(), maxPolicyFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return &policy, nil
}

// Validate checks the policy for safety and fills defaults.
func (p *Policy) Validate() error {
	if p.ReplaceToken == "" {
		p.ReplaceToken = "REDACTED"
	}
	if len(p.SensitiveKeys) == 0 && len(p.Patterns) == 0 {
		return fmt.Errorf("policy redacts nothing: needs sensitive_keys or patterns")
	}
	for i, key := range p.SensitiveKeys {
		if key == "" {
			return fmt.Errorf("sensitive_keys[%d] is empty", i)
		}
	}
	seen := make(map[string]bool, len(p.Patterns))
	for i, rule := range p.Patterns {
		if rule.Name == "" {
			return fmt.Errorf("patterns[%d] has no name", i)
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate pattern name %q", rule.Name)
		}
		seen[rule.Name] = true
		if err := util.ValidatePattern(rule.Pattern); err != nil {
			return fmt.Errorf("pattern %q rejected: %w", rule.Name, err)
		}
	}
	return nil
}
