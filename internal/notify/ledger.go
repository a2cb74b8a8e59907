package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"groupcal/internal/models"
)

// Key identifies a single notification: one event, one lead-time category.
func KeyFor(ev models.Event, cat Category) string {
	return ev.ID + "|" + string(cat)
}

// Ledger is the durable record of which (event, category) notifications have
// already fired. Keys are inserted at most once and never removed; the live
// key set is bounded by the calendar look-ahead window, so old identifiers
// simply stop being re-seen.
type Ledger struct {
	mu   sync.Mutex
	path string
	keys map[string]struct{}
}

// LoadLedger reads the persisted key set from path. A missing file starts an
// empty ledger; any other read or decode error is returned.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, keys: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file %s: %w", path, err)
	}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	return l, nil
}

// Has reports whether a notification key has already fired.
func (l *Ledger) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok
}

// Record marks a key as fired and persists the ledger. Recording a key
// already present is a no-op. A persistence failure is returned but the
// in-memory state keeps the key, so the current process will not re-notify;
// a crash before the next successful persist can re-notify after restart.
func (l *Ledger) Record(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.keys[key]; ok {
		return nil
	}
	l.keys[key] = struct{}{}
	return l.persistLocked()
}

// Len returns the number of recorded keys.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func (l *Ledger) persistLocked() error {
	keys := make([]string, 0, len(l.keys))
	for k := range l.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	return nil
}
