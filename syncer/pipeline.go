package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bonelab-mod-manager/archive"
	"bonelab-mod-manager/inventory"
	"bonelab-mod-manager/manifest"
	"bonelab-mod-manager/modio"
	"bonelab-mod-manager/retry"
)

// ErrUnexpectedLayout is returned when an extracted archive does not have the
// expected shape: one barcode directory holding exactly two json descriptors.
var ErrUnexpectedLayout = errors.New("unexpected archive layout")

// Outcome is the terminal state of one pipeline action.
type Outcome int

const (
	Done Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result describes how one install or update action ended.
type Result struct {
	Outcome     Outcome
	Barcode     string
	FileID      uint64
	Version     string
	ArchivePath string // cached zip, when archives are kept
	Err         error
}

// Installer executes the download → extract → publish sequence for one mod at
// a time. Staging happens under StagingRoot and nothing under ModDir is
// touched until the staged content is complete, so a failure at any stage
// leaves previously installed versions intact.
type Installer struct {
	Client       *modio.Client
	Extractor    archive.Extractor
	ModDir       string
	StagingRoot  string
	CacheDir     string
	KeepArchives bool
	Log          *zap.SugaredLogger

	// now is swappable for tests.
	now func() time.Time
}

func (inst *Installer) clock() time.Time {
	if inst.now != nil {
		return inst.now()
	}
	return time.Now()
}

// Install performs a fresh install of a subscribed mod using its currently
// attached modfile.
func (inst *Installer) Install(ctx context.Context, mod modio.Mod) Result {
	if mod.Modfile == nil {
		inst.Log.Infow("No modfile attached, nothing to install", zap.String("mod", mod.Name))
		return Result{Outcome: Skipped}
	}
	return inst.run(ctx, mod, *mod.Modfile, nil)
}

// Update replaces an installed mod with the newest windows release. The
// highest file id wins: the service appends files monotonically, so id order
// is release order.
func (inst *Installer) Update(ctx context.Context, action UpdateAction) Result {
	log := inst.Log.With(zap.String("barcode", action.Item.Barcode()))

	var files []modio.Modfile
	err := retry.Do(ctx, func() error {
		var listErr error
		files, listErr = inst.Client.ListFiles(ctx, GameID, action.Remote.ID)
		return listErr
	}, modio.IsRateLimited)
	if err != nil {
		return Result{Outcome: Failed, Barcode: action.Item.Barcode(), Err: fmt.Errorf("failed to list files: %w", err)}
	}

	var chosen *modio.Modfile
	for i := range files {
		if !files[i].TargetsWindows() {
			continue
		}
		if chosen == nil || files[i].ID > chosen.ID {
			chosen = &files[i]
		}
	}
	if chosen == nil {
		log.Info("No windows release available, skipping update")
		return Result{Outcome: Skipped, Barcode: action.Item.Barcode()}
	}

	return inst.run(ctx, action.Remote, *chosen, &action.Item)
}

// run is the shared body: Download → Extract → LocateDescriptors →
// DeriveIdentity → WriteManifest → Publish. prev is nil for fresh installs.
func (inst *Installer) run(ctx context.Context, mod modio.Mod, file modio.Modfile, prev *inventory.Item) Result {
	log := inst.Log.With(zap.String("mod", mod.Name), zap.Uint64("file_id", file.ID))
	fail := func(err error) Result {
		return Result{Outcome: Failed, Err: err}
	}

	// Download into the cache, retrying through rate limits. A terminal
	// failure here has touched nothing under the mod directory.
	archivePath := filepath.Join(inst.CacheDir, sanitizeName(mod.Name)+".zip")
	log.Infow("Downloading", zap.String("dest", archivePath))
	err := retry.Do(ctx, func() error {
		return inst.Client.DownloadFile(ctx, file, archivePath)
	}, modio.IsRateLimited)
	if err != nil {
		return fail(fmt.Errorf("download failed: %w", err))
	}

	// Stage under a token-suffixed directory so two mods sharing a display
	// name cannot collide before the barcode is known.
	stageDir := filepath.Join(inst.StagingRoot, sanitizeName(mod.Name)+"-"+stagingToken())
	cleanupStage := func() { _ = os.RemoveAll(stageDir) }

	log.Infow("Extracting", zap.String("staging", stageDir))
	if err := inst.Extractor.Extract(archivePath, stageDir); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("extract failed: %w", err))
	}

	barcode, palletFile, catalogFile, err := inst.locateDescriptors(stageDir)
	if err != nil {
		cleanupStage()
		return fail(err)
	}
	log = log.With(zap.String("barcode", barcode))

	// The manifest is the record of intent; it is written before content is
	// published.
	record, err := inst.buildManifest(mod, file, barcode, palletFile, catalogFile, prev)
	if err != nil {
		cleanupStage()
		return fail(err)
	}
	data, err := manifest.Encode(record)
	if err != nil {
		cleanupStage()
		return fail(err)
	}
	manifestPath := filepath.Join(inst.ModDir, barcode+".manifest")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("failed to write manifest: %w", err))
	}

	// Publish: replace any prior version of this barcode, then drop the
	// now-empty staging parent.
	if err := inst.Extractor.MoveDirectory(filepath.Join(stageDir, barcode), filepath.Join(inst.ModDir, barcode)); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("publish failed: %w", err))
	}
	if err := inst.Extractor.RemoveEmptyDirectory(stageDir); err != nil {
		log.Warnw("Failed to remove staging directory", zap.Error(err))
	}

	result := Result{Outcome: Done, Barcode: barcode, FileID: file.ID}
	if file.Version != nil {
		result.Version = *file.Version
	}

	if inst.KeepArchives {
		kept := filepath.Join(inst.CacheDir, "archive", fmt.Sprintf("%s-%d.zip", barcode, file.ID))
		if err := os.MkdirAll(filepath.Dir(kept), 0755); err == nil {
			if err := os.Rename(archivePath, kept); err == nil {
				result.ArchivePath = kept
			} else {
				log.Warnw("Failed to archive downloaded zip", zap.Error(err))
			}
		}
	} else {
		_ = os.Remove(archivePath)
	}

	log.Info("Installed")
	return result
}

// Republish reinstalls a previously archived zip without touching the
// network: extract, relocate descriptors and publish, carrying listing and
// target metadata over from the manifest currently on disk. Used by rollback.
func (inst *Installer) Republish(archivePath string, prev manifest.Manifest, fileID uint64, version string) Result {
	fail := func(err error) Result {
		return Result{Outcome: Failed, Err: err}
	}

	stageDir := filepath.Join(inst.StagingRoot, sanitizeName(prev.Objects.Pallet.Barcode)+"-"+stagingToken())
	cleanupStage := func() { _ = os.RemoveAll(stageDir) }

	if err := inst.Extractor.Extract(archivePath, stageDir); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("extract failed: %w", err))
	}

	barcode, palletFile, catalogFile, err := inst.locateDescriptors(stageDir)
	if err != nil {
		cleanupStage()
		return fail(err)
	}

	params := manifest.BuildParams{
		Barcode:           barcode,
		PalletFile:        palletFile,
		CatalogFile:       catalogFile,
		Version:           optional(version),
		InstalledAtMillis: inst.clock().UnixMilli(),
		UpdatedAtMillis:   inst.clock().UnixMilli(),
	}
	if prevInstalled, err := strconv.ParseInt(prev.Objects.Pallet.InstalledDate, 10, 64); err == nil {
		params.InstalledAtMillis = prevInstalled
	}
	if listing := prev.Objects.Listing; listing != nil {
		params.Title = listing.Title
		params.Description = listing.Description
		params.Author = listing.Author
		params.ThumbnailURL = listing.ThumbnailURL
	}
	if target := prev.Objects.Target; target != nil {
		params.GameID = target.GameID
		params.ModID = target.ModID
	}
	params.ModfileID = fileID

	data, err := manifest.Encode(manifest.Build(params))
	if err != nil {
		cleanupStage()
		return fail(err)
	}
	if err := os.WriteFile(filepath.Join(inst.ModDir, barcode+".manifest"), data, 0644); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("failed to write manifest: %w", err))
	}

	if err := inst.Extractor.MoveDirectory(filepath.Join(stageDir, barcode), filepath.Join(inst.ModDir, barcode)); err != nil {
		cleanupStage()
		return fail(fmt.Errorf("publish failed: %w", err))
	}
	if err := inst.Extractor.RemoveEmptyDirectory(stageDir); err != nil {
		inst.Log.Warnw("Failed to remove staging directory", zap.Error(err))
	}

	return Result{Outcome: Done, Barcode: barcode, FileID: fileID, Version: version, ArchivePath: archivePath}
}

// locateDescriptors validates the extracted tree: exactly one child
// directory, whose name is the barcode, containing exactly two json
// descriptors. The pallet descriptor is normalized to first position.
func (inst *Installer) locateDescriptors(stageDir string) (barcode, palletFile, catalogFile string, err error) {
	children, err := inst.Extractor.ListChildren(stageDir)
	if err != nil {
		return "", "", "", err
	}
	if len(children) != 1 || !children[0].IsDir() {
		return "", "", "", fmt.Errorf("%w: expected exactly one directory in archive, found %d entries", ErrUnexpectedLayout, len(children))
	}
	barcode = children[0].Name()

	inner, err := inst.Extractor.ListChildren(filepath.Join(stageDir, barcode))
	if err != nil {
		return "", "", "", err
	}
	var jsons []string
	for _, entry := range inner {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			jsons = append(jsons, entry.Name())
		}
	}
	if len(jsons) != 2 {
		return "", "", "", fmt.Errorf("%w: expected 2 json descriptors, found %d", ErrUnexpectedLayout, len(jsons))
	}
	if !strings.HasSuffix(jsons[0], "pallet.json") {
		jsons[0], jsons[1] = jsons[1], jsons[0]
	}
	return barcode, jsons[0], jsons[1], nil
}

func (inst *Installer) buildManifest(mod modio.Mod, file modio.Modfile, barcode, palletFile, catalogFile string, prev *inventory.Item) (manifest.Manifest, error) {
	nowMillis := inst.clock().UnixMilli()

	installedAt := nowMillis
	updatedAt := nowMillis
	if prev != nil {
		// Update case: installedDate carries over, updateDate takes the
		// remote entry's timestamp scaled to milliseconds.
		prevInstalled, err := strconv.ParseInt(prev.Manifest.Objects.Pallet.InstalledDate, 10, 64)
		if err != nil {
			return manifest.Manifest{}, fmt.Errorf("%w: bad installedDate %q", manifest.ErrMalformed, prev.Manifest.Objects.Pallet.InstalledDate)
		}
		installedAt = prevInstalled
		updatedAt = mod.DateUpdated * 1000
	}

	return manifest.Build(manifest.BuildParams{
		Barcode:           barcode,
		PalletFile:        palletFile,
		CatalogFile:       catalogFile,
		Version:           file.Version,
		Title:             &mod.Name,
		Description:       optional(mod.DescriptionPlaintext),
		Author:            optional(mod.SubmittedBy.Username),
		ThumbnailURL:      optional(mod.Logo.Thumb320x180),
		GameID:            mod.GameID,
		ModID:             mod.ID,
		ModfileID:         file.ID,
		InstalledAtMillis: installedAt,
		UpdatedAtMillis:   updatedAt,
	}), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// stagingToken returns a short unique suffix for staging directory names.
func stagingToken() string {
	return uuid.NewString()[:8]
}

// sanitizeName makes a display name safe to use as a path component.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}
