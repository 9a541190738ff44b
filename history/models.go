package history

import (
	"gorm.io/gorm"
)

// InstallRecord is one completed pipeline action: a fresh install, an update
// or a rollback of an installed mod.
type InstallRecord struct {
	gorm.Model
	Barcode     string `gorm:"index"` // durable mod identifier
	ModID       uint64 // mod.io mod id
	FileID      uint64 // mod.io modfile id that was installed
	Version     string // modfile version string, if any
	Title       string // display name at the time of the action
	Action      string // "install", "update" or "rollback"
	ArchivePath string // cached zip the action was installed from, if kept
}

const (
	ActionInstall  = "install"
	ActionUpdate   = "update"
	ActionRollback = "rollback"
)
