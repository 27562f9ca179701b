package load

import (
	"context"
	"sync"

	"github.com/dfarias/escrow-etl/internal/table"
)

// MemoryLoader keeps loaded tables in memory. It backs tests and dry runs.
type MemoryLoader struct {
	mu     sync.Mutex
	tables map[string]*table.Table

	// PingErr and ReplaceErr, when set, are returned by the matching
	// method to exercise failure paths.
	PingErr    error
	ReplaceErr error
}

func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{tables: make(map[string]*table.Table)}
}

func (l *MemoryLoader) Ping(ctx context.Context) error {
	return l.PingErr
}

func (l *MemoryLoader) Replace(ctx context.Context, tableName string, t *table.Table) error {
	if l.ReplaceErr != nil {
		return l.ReplaceErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables[tableName] = t
	return nil
}

func (l *MemoryLoader) Stats(ctx context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := make(map[string]int, len(l.tables))
	for name, t := range l.tables {
		stats[name] = t.Len()
	}
	return stats, nil
}

func (l *MemoryLoader) Close() error { return nil }

// Table returns a loaded table by name, or nil.
func (l *MemoryLoader) Table(name string) *table.Table {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tables[name]
}
