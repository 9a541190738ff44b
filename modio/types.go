package modio

// API response shapes for the slice of the mod.io v1 surface the manager
// consumes. Timestamps are unix seconds unless noted otherwise.

// User represents the authenticated mod.io user.
type User struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// Mod is one entry in the catalog or in the user's subscription list.
type Mod struct {
	ID                   uint64   `json:"id"`
	GameID               uint64   `json:"game_id"`
	Name                 string   `json:"name"`
	DateUpdated          int64    `json:"date_updated"`
	DescriptionPlaintext string   `json:"description_plaintext"`
	SubmittedBy          User     `json:"submitted_by"`
	Logo                 Logo     `json:"logo"`
	Modfile              *Modfile `json:"modfile"`
}

// Logo carries the mod's thumbnail variants.
type Logo struct {
	Thumb320x180 string `json:"thumb_320x180"`
}

// Modfile is one downloadable release of a mod. File ids are assigned
// monotonically by the service, so id order doubles as release order.
type Modfile struct {
	ID        uint64     `json:"id"`
	ModID     uint64     `json:"mod_id"`
	DateAdded int64      `json:"date_added"`
	Version   *string    `json:"version"`
	Filename  string     `json:"filename"`
	Download  Download   `json:"download"`
	Platforms []Platform `json:"platforms"`
}

// Download holds the short-lived binary URL for a modfile.
type Download struct {
	BinaryURL   string `json:"binary_url"`
	DateExpires int64  `json:"date_expires"`
}

// Platform is one platform target of a modfile.
type Platform struct {
	Platform string `json:"platform"`
	Status   int    `json:"status"`
}

// PlatformWindows is the platform string for PC releases.
const PlatformWindows = "windows"

// TargetsWindows reports whether the modfile has a windows platform target.
func (f Modfile) TargetsWindows() bool {
	for _, p := range f.Platforms {
		if p.Platform == PlatformWindows {
			return true
		}
	}
	return false
}

// AccessToken is the bearer credential returned by the email exchange.
type AccessToken struct {
	Code        int    `json:"code"`
	AccessToken string `json:"access_token"`
	DateExpires int64  `json:"date_expires"`
}

type modsPage struct {
	Data         []Mod `json:"data"`
	ResultCount  int   `json:"result_count"`
	ResultOffset int   `json:"result_offset"`
	ResultLimit  int   `json:"result_limit"`
	ResultTotal  int   `json:"result_total"`
}

type filesPage struct {
	Data         []Modfile `json:"data"`
	ResultCount  int       `json:"result_count"`
	ResultOffset int       `json:"result_offset"`
	ResultLimit  int       `json:"result_limit"`
	ResultTotal  int       `json:"result_total"`
}
