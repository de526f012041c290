// Package history holds the per-session record of converted images.
package history

import "sync"

// TimestampLayout is the fixed layout of Record.Timestamp (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultWindow is the number of records shown in a history listing.
const DefaultWindow = 5

// Record is the result of recognizing one uploaded image
type Record struct {
	Filename  string `json:"filename"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Ledger is an append-only, in-memory sequence of records. It lives as long
// as the session that owns it and is never persisted.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
}

// NewLedger creates an empty Ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds a record after all previously appended ones
func (l *Ledger) Append(record Record) {
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
}

// Recent returns up to the last n records, most recently appended first.
func (l *Ledger) Recent(n int) []Record {
	if n <= 0 {
		return []Record{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, 0, n)
	for i := len(l.records) - 1; i >= len(l.records)-n; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// Len returns the number of records appended so far
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
