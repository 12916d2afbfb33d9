package fuzzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"scrub/metrics"
)

// maxCorpusEntryBytes skips corpus files larger than this; the sanitizer
// would reject them before doing interesting work anyway.
const maxCorpusEntryBytes = 4 * 1024 * 1024

// seedInputs prime an empty corpus. They cover the boundary's edge cases:
// empty input, bare scalars, nesting, non-UTF-8 bytes, and truncated JSON.
var seedInputs = [][]byte{
	[]byte(``),
	[]byte(`{}`),
	[]byte(`null`),
	[]byte(`0`),
	[]byte(`""`),
	[]byte(`{"event_type":"login","user":"test"}`),
	[]byte(`{"nested":{"deep":{"value":123}}}`),
	[]byte(`{"array":[1,2,3]}`),
	[]byte(`{"password":"hunter2","msg":"<script>alert(1)</script>"}`),
	[]byte(`{"broken": `),
	{0x80},
	{0xff, 0xfe, 0xfd},
}

// Corpus is an in-memory view of a corpus directory. Entries are loaded once
// at startup; Add persists new entries back to the directory under their
// content hash, the layout coverage-guided fuzzers use.
type Corpus struct {
	dir     string
	entries [][]byte
	logger  *zap.SugaredLogger
}

// LoadCorpus reads up to maxEntries files from dir, creating and seeding the
// directory when it is empty or missing.
func LoadCorpus(dir string, maxEntries int, logger *zap.SugaredLogger) (*Corpus, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory %s: %w", dir, err)
	}

	c := &Corpus{dir: dir, logger: logger}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	for _, entry := range files {
		if entry.IsDir() {
			continue
		}
		if maxEntries > 0 && len(c.entries) >= maxEntries {
			logger.Warnf("Corpus capped at %d entries, ignoring the rest of %s", maxEntries, dir)
			break
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warnf("Skipping unreadable corpus entry %s: %v", path, err)
			continue
		}
		if len(data) > maxCorpusEntryBytes {
			logger.Warnf("Skipping oversized corpus entry %s (%d bytes)", path, len(data))
			continue
		}
		c.entries = append(c.entries, data)
	}

	if len(c.entries) == 0 {
		logger.Infof("Corpus %s is empty, seeding %d built-in inputs", dir, len(seedInputs))
		for _, seed := range seedInputs {
			if err := c.Add(seed); err != nil {
				return nil, fmt.Errorf("failed to seed corpus: %w", err)
			}
		}
	}

	metrics.CorpusEntries.Set(float64(len(c.entries)))
	return c, nil
}

// Len returns the number of loaded entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Pick returns a random entry. The corpus is never empty after LoadCorpus.
func (c *Corpus) Pick(rnd *rand.Rand) []byte {
	return c.entries[rnd.Intn(len(c.entries))]
}

// Add appends an entry and persists it under its content hash. Adding an
// entry that already exists on disk is a no-op rewrite of identical bytes.
func (c *Corpus) Add(data []byte) error {
	name := EntryName(data)
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write corpus entry %s: %w", path, err)
	}
	c.entries = append(c.entries, data)
	metrics.CorpusEntries.Set(float64(len(c.entries)))
	return nil
}

// EntryName returns the content-hash filename for an input.
func EntryName(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
