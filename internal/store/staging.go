package store

import (
	"fmt"
	"sync"

	"github.com/insightdelivered/expense-tracker/internal/models"
)

// Staging holds transactions extracted from a statement but not yet
// confirmed by the reviewer. It lives in memory only and is never
// persisted; confirming drains it into the durable store.
type Staging struct {
	mu   sync.Mutex
	txns []models.Transaction
}

// NewStaging returns an empty staging buffer.
func NewStaging() *Staging {
	return &Staging{}
}

// Add appends transactions to the buffer, e.g. a fresh extraction or a
// manual entry.
func (b *Staging) Add(txns ...models.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txns = append(b.txns, txns...)
}

// List returns a copy of the buffered transactions in order.
func (b *Staging) List() []models.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyTxns(b.txns)
}

// Len returns the number of buffered transactions.
func (b *Staging) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.txns)
}

// Set replaces the transaction at position i, for pre-confirmation edits.
func (b *Staging) Set(i int, txn models.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.txns) {
		return fmt.Errorf("position %d out of range (staging has %d transactions)", i, len(b.txns))
	}
	b.txns[i] = txn
	return nil
}

// Remove drops the transaction at position i.
func (b *Staging) Remove(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.txns) {
		return fmt.Errorf("position %d out of range (staging has %d transactions)", i, len(b.txns))
	}
	b.txns = append(b.txns[:i], b.txns[i+1:]...)
	return nil
}

// Clear empties the buffer without touching the store.
func (b *Staging) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txns = nil
}

// Drain returns the buffered transactions and clears the buffer in one
// step, for confirm-and-merge flows.
func (b *Staging) Drain() []models.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.txns
	b.txns = nil
	return out
}
