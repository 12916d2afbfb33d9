package fuzzer

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadCorpus_SeedsEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadCorpus(dir, 100, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, len(seedInputs), c.Len())

	// Seeds are persisted under their content hash
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, len(seedInputs))
}

func TestLoadCorpus_ReadsExistingEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte(`[]`), 0o644))

	c, err := LoadCorpus(dir, 100, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestLoadCorpus_CapsEntries(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(rune('a'+i))), []byte{byte(i)}, 0o644))
	}

	c, err := LoadCorpus(dir, 3, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestLoadCorpus_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "corpus")

	c, err := LoadCorpus(dir, 100, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 0)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCorpus_PickAndAdd(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadCorpus(dir, 100, zap.NewNop().Sugar())
	require.NoError(t, err)

	before := c.Len()
	entry := []byte(`{"new": "entry"}`)
	require.NoError(t, c.Add(entry))
	assert.Equal(t, before+1, c.Len())

	path := filepath.Join(dir, EntryName(entry))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entry, data)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		assert.NotNil(t, c.Pick(rnd))
	}
}

func TestEntryName_IsStableContentHash(t *testing.T) {
	a := EntryName([]byte("same"))
	b := EntryName([]byte("same"))
	other := EntryName([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.Len(t, a, 64)
}
