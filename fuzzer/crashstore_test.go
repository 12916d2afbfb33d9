package fuzzer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scrub/core"
	"scrub/harness"
)

func newTestStore(t *testing.T) *CrashStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewCrashStore(filepath.Join(dir, "scrub.db"), filepath.Join(dir, "crashers"), 16, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func crashReport(reason string, err error) harness.Report {
	return harness.Report{
		Outcome:    core.OutcomeCrash,
		Reason:     reason,
		Err:        err,
		Diagnostic: `"boom"`,
	}
}

func TestCrashStore_AddAndList(t *testing.T) {
	store := newTestStore(t)

	rep := crashReport(harness.ReasonPanic, errors.New("runtime error: index out of range"))
	input := []byte(`{"trigger": true}`)

	recorded, err := store.Add(rep, input)
	require.NoError(t, err)
	assert.True(t, recorded)

	crashers, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, crashers, 1)

	c := crashers[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, Signature(rep), c.Signature)
	assert.Equal(t, harness.ReasonPanic, c.Reason)
	assert.Equal(t, "runtime error: index out of range", c.Error)
	assert.Equal(t, `"boom"`, c.Diagnostic)

	// The raw input is replayable from the spill directory
	data, err := os.ReadFile(c.InputFile)
	require.NoError(t, err)
	assert.Equal(t, input, data)

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCrashStore_DeduplicatesBySignature(t *testing.T) {
	store := newTestStore(t)

	rep := crashReport(harness.ReasonUnexpectedError, errors.New("boom"))

	recorded, err := store.Add(rep, []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.True(t, recorded)

	// Different input, same bug
	recorded, err = store.Add(rep, []byte(`{"b": 2}`))
	require.NoError(t, err)
	assert.False(t, recorded)

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCrashStore_DistinctBugsBothRecorded(t *testing.T) {
	store := newTestStore(t)

	recorded, err := store.Add(crashReport(harness.ReasonPanic, errors.New("boom")), []byte(`a`))
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = store.Add(crashReport(harness.ReasonUnexpectedError, errors.New("boom")), []byte(`b`))
	require.NoError(t, err)
	assert.True(t, recorded, "same error text under a different reason is a different bug")

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCrashStore_FailedPersistDoesNotSuppressRetry(t *testing.T) {
	dir := t.TempDir()
	crashersDir := filepath.Join(dir, "crashers")
	store, err := NewCrashStore(filepath.Join(dir, "scrub.db"), crashersDir, 16, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rep := crashReport(harness.ReasonPanic, errors.New("boom"))

	// Replace the spill directory with a file so the input write fails
	require.NoError(t, os.RemoveAll(crashersDir))
	require.NoError(t, os.WriteFile(crashersDir, []byte("x"), 0o644))

	_, err = store.Add(rep, []byte(`{"a": 1}`))
	require.Error(t, err)

	// Once the directory is back, the same bug must still be recordable
	require.NoError(t, os.Remove(crashersDir))
	require.NoError(t, os.MkdirAll(crashersDir, 0o755))

	recorded, err := store.Add(rep, []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.True(t, recorded)

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSignature_Stable(t *testing.T) {
	a := crashReport(harness.ReasonPanic, errors.New("boom"))
	b := crashReport(harness.ReasonPanic, errors.New("boom"))

	assert.Equal(t, Signature(a), Signature(b))
	assert.NotEqual(t, Signature(a), Signature(crashReport(harness.ReasonPanic, errors.New("other"))))
	assert.NotEqual(t, Signature(a), Signature(crashReport(harness.ReasonPanic, nil)))
}
