// Package ledger persists the set of local mods already confirmed subscribed
// on the remote service, so repeat runs skip redundant subscribe calls.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Ledger is a set of manifest paths backed by a newline-delimited file.
// Marks are appended to the file immediately so a crash mid-run loses no
// progress.
type Ledger struct {
	path    string
	entries map[string]struct{}
}

// Load reads the ledger at path. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger %q: %w", path, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			l.entries[line] = struct{}{}
		}
	}
	return l, nil
}

// IsSubscribed reports whether p was already confirmed subscribed.
func (l *Ledger) IsSubscribed(p string) bool {
	_, ok := l.entries[p]
	return ok
}

// MarkSubscribed records p and flushes it to disk. Re-marking an existing
// path is a no-op, so the file never carries duplicates.
func (l *Ledger) MarkSubscribed(p string) error {
	if l.IsSubscribed(p) {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger %q: %w", l.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(p + "\n"); err != nil {
		return fmt.Errorf("failed to append to ledger %q: %w", l.path, err)
	}
	l.entries[p] = struct{}{}
	return nil
}

// Len returns the number of recorded paths.
func (l *Ledger) Len() int { return len(l.entries) }
