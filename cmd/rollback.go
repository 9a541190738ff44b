package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bonelab-mod-manager/archive"
	"bonelab-mod-manager/config"
	"bonelab-mod-manager/history"
	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/manifest"
	"bonelab-mod-manager/syncer"
)

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback [barcode]",
	Short: "Reinstall the previous version of a mod from its archived zip",
	Long: `Reinstall the previous version of a mod from its archived zip.
Example: bonelab-mod-manager rollback SLZTeam.SomeMod

Requires KEEP_OLD_ARCHIVES so earlier downloads are still in the cache.
No network access is needed; the archived zip is re-extracted and published.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		rollbackMod(args[0])
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func rollbackMod(barcode string) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}
	history.Init(cfg.DatabasePath)

	log := logger.Log.With(zap.String("barcode", barcode))

	// The most recent record is what is installed now; the one before it
	// with an archive is what we can return to.
	var records []history.InstallRecord
	if err := history.DB.Where("barcode = ?", barcode).Order("created_at DESC").Find(&records).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnw("Mod not found in history")
			return
		}
		log.Fatalw("Failed to query history", zap.Error(err))
	}
	if len(records) < 2 {
		log.Fatalw("No previous version recorded for mod")
	}

	var previous *history.InstallRecord
	for i := 1; i < len(records); i++ {
		if records[i].ArchivePath != "" {
			previous = &records[i]
			break
		}
	}
	if previous == nil {
		log.Fatalw("No previous version with an archived zip; set KEEP_OLD_ARCHIVES to enable rollback")
	}
	if _, err := os.Stat(previous.ArchivePath); errors.Is(err, os.ErrNotExist) {
		log.Fatalw("Archived zip not found", zap.String("archive_path", previous.ArchivePath))
	}

	// The manifest on disk provides the listing/target metadata the
	// republished manifest carries over.
	manifestPath := filepath.Join(cfg.ModFolder, barcode+".manifest")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalw("Failed to read installed manifest", zap.Error(err))
	}
	prev, err := manifest.Decode(data)
	if err != nil {
		log.Fatalw("Installed manifest is malformed", zap.Error(err))
	}

	installer := &syncer.Installer{
		Extractor:   archive.Zip{},
		ModDir:      cfg.ModFolder,
		StagingRoot: cfg.StagingRoot,
		CacheDir:    cfg.CacheDir,
		Log:         logger.Log,
	}

	log.Infow("Rolling back",
		zap.String("archive", previous.ArchivePath),
		zap.String("version", previous.Version),
	)
	res := installer.Republish(previous.ArchivePath, prev, previous.FileID, previous.Version)
	if res.Outcome != syncer.Done {
		log.Fatalw("Rollback failed", zap.Error(res.Err))
	}

	rec := history.InstallRecord{
		Barcode:     res.Barcode,
		ModID:       previous.ModID,
		FileID:      previous.FileID,
		Version:     previous.Version,
		Title:       previous.Title,
		Action:      history.ActionRollback,
		ArchivePath: previous.ArchivePath,
	}
	if err := history.DB.Create(&rec).Error; err != nil {
		log.Warnw("Failed to record rollback in history", zap.Error(err))
	}

	fmt.Printf("Successfully rolled back %s to version %s\n", barcode, previous.Version)
}
