package manifest

import (
	"fmt"
	"strconv"
)

// installPathPrefix is where the game expects mod content to live; the
// pallet and catalog paths baked into a manifest use it verbatim.
const installPathPrefix = "C:/users/steamuser/AppData/LocalLow/Stress Level Zero/BONELAB/Mods"

// BuildParams collects everything needed to construct a fresh manifest from
// remote catalog metadata and the identity derived from the extracted archive.
type BuildParams struct {
	Barcode     string
	PalletFile  string // pallet descriptor filename inside the barcode directory
	CatalogFile string // catalog descriptor filename inside the barcode directory
	Version     *string

	Title        *string
	Description  *string
	Author       *string
	ThumbnailURL *string

	GameID    uint64
	ModID     uint64
	ModfileID uint64

	InstalledAtMillis int64
	UpdatedAtMillis   int64
}

// Build constructs a complete manifest with all three sub-objects wired
// together through their stable references.
func Build(p BuildParams) Manifest {
	return Manifest{
		Version: 2,
		Root:    Reference{Ref: PalletRef, Type: PalletType},
		Objects: Objects{
			Pallet: Pallet{
				Barcode:       p.Barcode,
				PalletPath:    fmt.Sprintf("%s/%s/%s", installPathPrefix, p.Barcode, p.PalletFile),
				CatalogPath:   fmt.Sprintf("%s/%s/%s", installPathPrefix, p.Barcode, p.CatalogFile),
				Version:       p.Version,
				InstalledDate: strconv.FormatInt(p.InstalledAtMillis, 10),
				UpdateDate:    strconv.FormatInt(p.UpdatedAtMillis, 10),
				ModListing:    &Reference{Ref: ListingRef, Type: ListingType},
				Active:        true,
				Isa:           Isa{Type: PalletType},
			},
			Listing: &Listing{
				Barcode:      p.Barcode,
				Title:        p.Title,
				Description:  p.Description,
				Author:       p.Author,
				Version:      p.Version,
				ThumbnailURL: p.ThumbnailURL,
				Targets: map[string]Reference{
					"pc": {Ref: TargetRef, Type: TargetType},
				},
				Isa: Isa{Type: ListingType},
			},
			Target: &Target{
				GameID:    p.GameID,
				ModID:     p.ModID,
				ModfileID: p.ModfileID,
				Isa:       Isa{Type: TargetType},
			},
		},
	}
}
