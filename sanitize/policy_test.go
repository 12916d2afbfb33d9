package sanitize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultPolicy_IsValid(t *testing.T) {
	policy := DefaultPolicy()
	require.NoError(t, policy.Validate())
	assert.Equal(t, "REDACTED", policy.ReplaceToken)
	assert.NotEmpty(t, policy.SensitiveKeys)
	assert.NotEmpty(t, policy.Patterns)
}

func TestLoadPolicy_Valid(t *testing.T) {
	path := writePolicyFile(t, `
sensitive_keys:
  - password
  - session_id
patterns:
  - name: ticket
    pattern: 'TICKET-[0-9]{6}'
    replacement: TICKET-REDACTED
replace_token: HIDDEN
`)

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"password", "session_id"}, policy.SensitiveKeys)
	assert.Equal(t, "HIDDEN", policy.ReplaceToken)
	require.Len(t, policy.Patterns, 1)
	assert.Equal(t, "ticket", policy.Patterns[0].Name)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicy_UnknownField(t *testing.T) {
	path := writePolicyFile(t, `
sensitive_keys: [password]
sensitve_kyes: [typo]
`)

	_, err := LoadPolicy(path)
	assert.Error(t, err, "unknown fields must be load-time errors")
}

func TestLoadPolicy_UnsafePattern(t *testing.T) {
	path := writePolicyFile(t, `
patterns:
  - name: evil
    pattern: '(a+)+'
`)

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evil")
}

func TestPolicyValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{
			name:   "empty policy redacts nothing",
			policy: Policy{},
		},
		{
			name:   "empty sensitive key",
			policy: Policy{SensitiveKeys: []string{""}},
		},
		{
			name: "pattern without name",
			policy: Policy{
				Patterns: []PatternRule{{Pattern: "a"}},
			},
		},
		{
			name: "duplicate pattern names",
			policy: Policy{
				Patterns: []PatternRule{
					{Name: "dup", Pattern: "a"},
					{Name: "dup", Pattern: "b"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.policy.Validate())
		})
	}
}

func TestPolicyValidate_FillsToken(t *testing.T) {
	policy := Policy{SensitiveKeys: []string{"password"}}
	require.NoError(t, policy.Validate())
	assert.Equal(t, "REDACTED", policy.ReplaceToken)
}
