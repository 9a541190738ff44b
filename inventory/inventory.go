// Package inventory builds the set of installed mods from the manifest files
// in the mod directory.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bonelab-mod-manager/manifest"
)

// vendorPrefix marks manifests shipped with the game itself; those are never
// touched by sync.
const vendorPrefix = "SLZ"

// Item is one locally present mod: its manifest path plus the decoded record.
type Item struct {
	Path     string
	Manifest manifest.Manifest
}

// ModID returns the item's remote mod identifier, or false for locally
// authored mods.
func (it Item) ModID() (uint64, bool) { return it.Manifest.ModID() }

// Barcode returns the durable identifier the item was installed under.
func (it Item) Barcode() string { return it.Manifest.Objects.Pallet.Barcode }

// Scan loads every mod manifest in dir. A manifest that fails to decode is a
// fatal error for the whole scan: silently dropping a malformed record would
// make reconciliation treat the mod as absent.
func Scan(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mod directory %q: %w", dir, err)
	}

	var items []Item
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".manifest") || strings.HasPrefix(name, vendorPrefix) {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
		}
		m, err := manifest.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("manifest %q: %w", path, err)
		}
		items = append(items, Item{Path: path, Manifest: m})
	}
	return items, nil
}
