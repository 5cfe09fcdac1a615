package exports

import (
	"context"
	"sync"
)

// MemoryAuditLog collects audit entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog constructs an empty audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a snapshot of recorded entries in order.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}
