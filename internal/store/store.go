// Package store owns the durable collection of confirmed transactions and
// the staging buffer that feeds it. Persistence is full-snapshot: every
// mutation rewrites the whole CSV file atomically (temp file + rename) and
// drops a timestamped backup copy next to it, rotated to the newest N.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/expense-tracker/internal/models"
	"github.com/insightdelivered/expense-tracker/internal/writer"
)

// DefaultBackupKeep is how many timestamped backups survive rotation when
// the caller does not say otherwise.
const DefaultBackupKeep = 10

const backupTimestampLayout = "2006-01-02_15-04-05"

// Store is a caller-owned transaction store bound to one CSV file path.
// Methods are safe for concurrent use; the read-modify-write snapshot
// cycle runs under one mutex per store.
type Store struct {
	mu         sync.Mutex
	path       string
	backupKeep int
	loaded     bool
	txns       []models.Transaction
	log        zerolog.Logger

	// now is swapped out in tests to control backup names.
	now func() time.Time
}

// New returns a store bound to path. Nothing is read from disk until the
// first Load or mutation. backupKeep <= 0 selects DefaultBackupKeep.
func New(path string, backupKeep int, log zerolog.Logger) *Store {
	if backupKeep <= 0 {
		backupKeep = DefaultBackupKeep
	}
	return &Store{
		path:       path,
		backupKeep: backupKeep,
		log:        log,
		now:        time.Now,
	}
}

// Load reads the snapshot file into memory and returns the rows. A missing
// file is an empty store, not an error. Subsequent calls return the
// in-memory view without re-reading.
func (s *Store) Load() ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return copyTxns(s.txns), nil
}

// Transactions returns the current in-memory rows, loading first if
// needed.
func (s *Store) Transactions() ([]models.Transaction, error) {
	return s.Load()
}

// Count returns the number of stored rows.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(s.txns), nil
}

// Merge appends new transactions, collapses exact duplicates across the
// combined set (first occurrence wins, order preserved), and persists the
// result. Previously stored rows that are not duplicates are never lost.
// On persist failure the in-memory view keeps its previous contents.
func (s *Store) Merge(newTxns []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}

	combined := make([]models.Transaction, 0, len(s.txns)+len(newTxns))
	combined = append(combined, s.txns...)
	combined = append(combined, newTxns...)
	combined = dedupe(combined)

	if err := s.persist(combined); err != nil {
		return err
	}

	added := len(combined) - len(s.txns)
	s.txns = combined
	s.log.Info().Int("added", added).Int("total", len(s.txns)).Msg("merged transactions into store")
	return nil
}

// Delete removes the row at position i and persists. Out-of-range
// positions are an error and a no-op.
func (s *Store) Delete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.txns) {
		return fmt.Errorf("position %d out of range (store has %d transactions)", i, len(s.txns))
	}

	updated := make([]models.Transaction, 0, len(s.txns)-1)
	updated = append(updated, s.txns[:i]...)
	updated = append(updated, s.txns[i+1:]...)

	if err := s.persist(updated); err != nil {
		return err
	}
	s.txns = updated
	return nil
}

// Patch carries the fields of an Update; nil fields are left untouched.
type Patch struct {
	Date     *time.Time
	Title    *string
	Amount   *decimal.Decimal
	Category *string
}

// Update applies a patch to the row at position i and persists.
// Out-of-range positions are an error and a no-op.
func (s *Store) Update(i int, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.txns) {
		return fmt.Errorf("position %d out of range (store has %d transactions)", i, len(s.txns))
	}

	updated := copyTxns(s.txns)
	txn := &updated[i]
	if patch.Date != nil {
		txn.Date = *patch.Date
	}
	if patch.Title != nil {
		txn.Title = *patch.Title
	}
	if patch.Amount != nil {
		txn.Amount = *patch.Amount
	}
	if patch.Category != nil {
		txn.Category = *patch.Category
	}

	if err := s.persist(updated); err != nil {
		return err
	}
	s.txns = updated
	return nil
}

// ensureLoaded reads the snapshot file once. Callers hold s.mu.
func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.txns = nil
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	txns, err := writer.Read(f)
	if err != nil {
		return fmt.Errorf("load store file %q: %w", s.path, err)
	}
	s.txns = txns
	s.loaded = true
	s.log.Debug().Int("count", len(txns)).Str("path", s.path).Msg("loaded transaction store")
	return nil
}

// persist writes txns to the primary path atomically, then writes a
// timestamped backup copy and rotates old backups. A backup failure is
// logged but does not fail the mutation; the primary snapshot is already
// durable at that point.
func (s *Store) persist(txns []models.Transaction) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".expenses-*.csv")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writer.Write(tmp, txns); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	backupPath := s.backupName()
	if err := copyFile(s.path, backupPath); err != nil {
		s.log.Warn().Err(err).Str("backup", backupPath).Msg("backup copy failed")
	} else if err := s.rotateBackups(); err != nil {
		s.log.Warn().Err(err).Msg("backup rotation failed")
	}

	return nil
}

// backupName derives the timestamped sibling name for the current save,
// e.g. data/expenses.csv -> data/expenses_2024-01-02_15-04-05.csv.
func (s *Store) backupName() string {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	return fmt.Sprintf("%s_%s%s", base, s.now().Format(backupTimestampLayout), ext)
}

// rotateBackups deletes all but the newest backupKeep timestamped copies.
func (s *Store) rotateBackups() error {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)

	matches, err := filepath.Glob(base + "_*" + ext)
	if err != nil {
		return err
	}
	if len(matches) <= s.backupKeep {
		return nil
	}

	// Timestamp suffixes sort lexicographically, newest last.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-s.backupKeep] {
		if err := os.Remove(old); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func copyTxns(txns []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txns))
	copy(out, txns)
	return out
}

// dedupe collapses rows equal on the full (date, title, amount, category)
// tuple, keeping the first occurrence and the original order.
func dedupe(txns []models.Transaction) []models.Transaction {
	seen := make(map[string]bool, len(txns))
	out := make([]models.Transaction, 0, len(txns))
	for _, txn := range txns {
		key := txn.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, txn)
	}
	return out
}
