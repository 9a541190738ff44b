// Package manifest implements the on-disk manifest format BONELAB uses to
// describe one installed mod: a root index plus up to three addressable
// sub-objects (pallet, mod listing, mod target) connected by typed references.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned when a manifest is missing its root index or
// pallet sub-object, or when either fails type validation.
var ErrMalformed = errors.New("malformed manifest")

// The reference identifiers are a contract with the game: the pallet is
// always object "1", the listing "2" and the target "3".
const (
	PalletRef  = "1"
	ListingRef = "2"
	TargetRef  = "3"

	PalletType  = "pallet-manifest#0"
	ListingType = "mod-listing#0"
	TargetType  = "mod-target-modio#0"
)

// Manifest is the decoded form of a <barcode>.manifest file.
type Manifest struct {
	Version uint64    `json:"version"`
	Root    Reference `json:"root"`
	Objects Objects   `json:"objects"`
}

// Objects holds the addressable sub-objects keyed by their fixed references.
// Listing and Target are optional; a manifest without a target describes a
// locally authored mod that is never synced.
type Objects struct {
	Pallet  Pallet   `json:"1"`
	Listing *Listing `json:"2,omitempty"`
	Target  *Target  `json:"3,omitempty"`
}

// Pallet describes install location, version and activation state.
type Pallet struct {
	Barcode       string     `json:"palletBarcode"`
	PalletPath    string     `json:"palletPath"`
	CatalogPath   string     `json:"catalogPath"`
	Version       *string    `json:"version"`
	InstalledDate string     `json:"installedDate"`
	UpdateDate    string     `json:"updateDate"`
	ModListing    *Reference `json:"modListing,omitempty"`
	Active        bool       `json:"active"`
	Isa           Isa        `json:"isa"`
}

// Listing carries the display metadata shown by the in-game mod browser.
type Listing struct {
	Barcode      string               `json:"barcode"`
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Author       *string              `json:"author"`
	Version      *string              `json:"version"`
	ThumbnailURL *string              `json:"thumbnailUrl"`
	Targets      map[string]Reference `json:"targets"`
	Isa          Isa                  `json:"isa"`
}

// Target records the mod.io provenance of an installed mod.
type Target struct {
	ThumbnailOverride *string `json:"thumbnailOverride"`
	GameID            uint64  `json:"gameId"`
	ModID             uint64  `json:"modId"`
	ModfileID         uint64  `json:"modfileId"`
	Isa               Isa     `json:"isa"`
}

// Reference is a lightweight typed pointer to another sub-object.
type Reference struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

// Isa tags a sub-object with its schema type.
type Isa struct {
	Type string `json:"type"`
}

// Decode parses manifest bytes. The root index and pallet are required;
// listing and target are optional.
func Decode(data []byte) (Manifest, error) {
	// Probe the shape first so required-field violations surface as
	// ErrMalformed rather than generic json errors.
	var probe struct {
		Version *uint64          `json:"version"`
		Root    *Reference       `json:"root"`
		Objects *json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if probe.Root == nil || probe.Objects == nil {
		return Manifest{}, fmt.Errorf("%w: missing root index or objects", ErrMalformed)
	}

	var objects struct {
		Pallet  *Pallet  `json:"1"`
		Listing *Listing `json:"2"`
		Target  *Target  `json:"3"`
	}
	if err := json.Unmarshal(*probe.Objects, &objects); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if objects.Pallet == nil {
		return Manifest{}, fmt.Errorf("%w: missing pallet object", ErrMalformed)
	}
	if objects.Pallet.Barcode == "" {
		return Manifest{}, fmt.Errorf("%w: pallet has no barcode", ErrMalformed)
	}

	var version uint64 = 2
	if probe.Version != nil {
		version = *probe.Version
	}

	return Manifest{
		Version: version,
		Root:    *probe.Root,
		Objects: Objects{
			Pallet:  *objects.Pallet,
			Listing: objects.Listing,
			Target:  objects.Target,
		},
	}, nil
}

// Encode serializes a manifest, re-emitting every present sub-object under
// its stable reference identifier. Output is pretty-printed, matching what
// the game itself writes.
func Encode(m Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return data, nil
}

// ModID returns the remote mod identifier, or false when the manifest has no
// target (locally authored mod).
func (m Manifest) ModID() (uint64, bool) {
	if m.Objects.Target == nil {
		return 0, false
	}
	return m.Objects.Target.ModID, true
}

// FileID returns the installed remote file identifier, or false when the
// manifest has no target.
func (m Manifest) FileID() (uint64, bool) {
	if m.Objects.Target == nil {
		return 0, false
	}
	return m.Objects.Target.ModfileID, true
}

// UpdateDateMillis parses the pallet's update date, stored as milliseconds
// since epoch in string form.
func (m Manifest) UpdateDateMillis() (int64, error) {
	ms, err := strconv.ParseInt(m.Objects.Pallet.UpdateDate, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad updateDate %q", ErrMalformed, m.Objects.Pallet.UpdateDate)
	}
	return ms, nil
}
