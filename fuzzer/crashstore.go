package fuzzer

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"scrub/harness"
	"scrub/metrics"
)

// Crasher is a persisted crash record. The raw input also lands in the
// crashers directory under its content hash so it can be replayed directly.
type Crasher struct {
	ID         string
	Signature  string
	Reason     string
	Error      string
	Diagnostic string
	InputFile  string
	CreatedAt  time.Time
}

// CrashStore persists crash-triggering inputs to SQLite plus a spill
// directory, deduplicating by crash signature so one bug does not flood a
// long run.
type CrashStore struct {
	db     *sql.DB
	dir    string
	seen   *lru.Cache[string, bool]
	logger *zap.SugaredLogger
}

const crashersSchema = `
	CREATE TABLE IF NOT EXISTS crashers (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		signature TEXT NOT NULL,
		reason TEXT NOT NULL,
		error TEXT NOT NULL,
		diagnostic TEXT NOT NULL,
		input_file TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_crashers_signature ON crashers(signature);
`

// NewCrashStore opens (creating if needed) the crasher database and spill
// directory.
func NewCrashStore(dbPath, dir string, dedupSize int, logger *zap.SugaredLogger) (*CrashStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create crashers directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open crasher database %s: %w", dbPath, err)
	}
	if _, err := db.Exec(crashersSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create crashers table: %w", err)
	}

	if dedupSize <= 0 {
		dedupSize = 1024
	}
	seen, err := lru.New[string, bool](dedupSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	return &CrashStore{db: db, dir: dir, seen: seen, logger: logger}, nil
}

// Signature derives the dedup key for a crash report. Same reason plus same
// error text means the same bug for dedup purposes.
func Signature(rep harness.Report) string {
	errText := ""
	if rep.Err != nil {
		errText = rep.Err.Error()
	}
	sum := sha256.Sum256([]byte(rep.Reason + "\x00" + errText))
	return hex.EncodeToString(sum[:])
}

// Add persists a crash unless its signature was already seen this run.
// Returns true when a new crasher was recorded.
func (s *CrashStore) Add(rep harness.Report, input []byte) (bool, error) {
	sig := Signature(rep)
	if _, dup := s.seen.Get(sig); dup {
		return false, nil
	}

	inputFile := filepath.Join(s.dir, EntryName(input))
	if err := os.WriteFile(inputFile, input, 0o644); err != nil {
		metrics.CrasherInsertFailures.Inc()
		return false, fmt.Errorf("failed to write crasher input %s: %w", inputFile, err)
	}

	errText := ""
	if rep.Err != nil {
		errText = rep.Err.Error()
	}

	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO crashers (id, signature, reason, error, diagnostic, input_file)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sig, rep.Reason, errText, rep.Diagnostic, inputFile)
	if err != nil {
		metrics.CrasherInsertFailures.Inc()
		return false, fmt.Errorf("failed to insert crasher: %w", err)
	}

	// Marked seen only once persisted, so a transient failure does not
	// suppress the crasher for the rest of the run.
	s.seen.Add(sig, true)
	metrics.CrashersTotal.Inc()
	s.logger.Errorw("New crasher recorded",
		"id", id,
		"reason", rep.Reason,
		"error", errText,
		"input", rep.Diagnostic,
		"input_file", inputFile)
	return true, nil
}

// List returns the most recent crashers, newest first.
func (s *CrashStore) List(limit int) ([]*Crasher, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, signature, reason, error, diagnostic, input_file
		FROM crashers
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crashers: %w", err)
	}
	defer rows.Close()

	var crashers []*Crasher
	for rows.Next() {
		var c Crasher
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.Signature, &c.Reason, &c.Error, &c.Diagnostic, &c.InputFile); err != nil {
			return nil, fmt.Errorf("failed to scan crasher: %w", err)
		}
		crashers = append(crashers, &c)
	}
	return crashers, rows.Err()
}

// Count returns the total number of persisted crashers.
func (s *CrashStore) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM crashers`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count crashers: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *CrashStore) Close() error {
	return s.db.Close()
}
