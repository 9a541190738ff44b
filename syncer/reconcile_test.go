package syncer

import (
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"bonelab-mod-manager/inventory"
	"bonelab-mod-manager/ledger"
	"bonelab-mod-manager/manifest"
	"bonelab-mod-manager/modio"
)

func installedItem(t *testing.T, barcode string, modID uint64, updatedAtMillis int64) inventory.Item {
	t.Helper()
	v := "1.0"
	return inventory.Item{
		Path: filepath.Join("/mods", barcode+".manifest"),
		Manifest: manifest.Build(manifest.BuildParams{
			Barcode:           barcode,
			PalletFile:        barcode + ".pallet.json",
			CatalogFile:       "catalog.json",
			Version:           &v,
			GameID:            GameID,
			ModID:             modID,
			ModfileID:         1,
			InstalledAtMillis: updatedAtMillis,
			UpdatedAtMillis:   updatedAtMillis,
		}),
	}
}

func localItem(t *testing.T, barcode string) inventory.Item {
	t.Helper()
	item := installedItem(t, barcode, 0, 0)
	item.Manifest.Objects.Listing = nil
	item.Manifest.Objects.Target = nil
	item.Manifest.Objects.Pallet.ModListing = nil
	return item
}

func remoteMod(id uint64, dateUpdated int64) modio.Mod {
	return modio.Mod{
		ID:          id,
		GameID:      GameID,
		Name:        "Mod " + string(rune('A'+id)),
		DateUpdated: dateUpdated,
		Modfile:     &modio.Modfile{ID: id * 100, ModID: id},
	}
}

func emptyLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Load(filepath.Join(t.TempDir(), "ledger"))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestBuildPlanCategorizes(t *testing.T) {
	log := zap.NewNop().Sugar()

	installed := installedItem(t, "Author.Installed", 1, 2000)
	stale := installedItem(t, "Author.Stale", 2, 2000)
	local := localItem(t, "Me.MyMod")
	items := []inventory.Item{installed, stale, local}

	led := emptyLedger(t)
	if err := led.MarkSubscribed(installed.Path); err != nil {
		t.Fatal(err)
	}

	remote := []modio.Mod{
		remoteMod(1, 2), // up to date: 2*1000 == 2000
		remoteMod(2, 3), // strictly newer: 3*1000 > 2000
		remoteMod(3, 5), // not installed
	}

	plan := BuildPlan(items, remote, led, log)

	if len(plan.ToSubscribe) != 1 || plan.ToSubscribe[0].Path != stale.Path {
		t.Errorf("ToSubscribe = %+v, want only the unrecorded installed item", plan.ToSubscribe)
	}
	if len(plan.ToInstall) != 1 || plan.ToInstall[0].ID != 3 {
		t.Errorf("ToInstall = %+v, want only mod 3", plan.ToInstall)
	}
	if len(plan.ToUpdate) != 1 || plan.ToUpdate[0].Remote.ID != 2 {
		t.Errorf("ToUpdate = %+v, want only mod 2", plan.ToUpdate)
	}
}

func TestBuildPlanSetsAreDisjoint(t *testing.T) {
	log := zap.NewNop().Sugar()
	items := []inventory.Item{
		installedItem(t, "Author.A", 1, 1000),
		installedItem(t, "Author.B", 2, 9000),
	}
	remote := []modio.Mod{remoteMod(1, 5), remoteMod(2, 5), remoteMod(3, 5)}

	plan := BuildPlan(items, remote, emptyLedger(t), log)

	installSet := map[uint64]bool{}
	for _, mod := range plan.ToInstall {
		installSet[mod.ID] = true
	}
	for _, action := range plan.ToUpdate {
		if installSet[action.Remote.ID] {
			t.Errorf("mod %d appears in both ToInstall and ToUpdate", action.Remote.ID)
		}
		if modID, _ := action.Item.ModID(); installSet[modID] {
			t.Errorf("mod %d appears in both ToInstall and ToUpdate", modID)
		}
	}
}

func TestBuildPlanIsIdempotent(t *testing.T) {
	log := zap.NewNop().Sugar()
	items := []inventory.Item{installedItem(t, "Author.A", 1, 1000)}
	remote := []modio.Mod{remoteMod(1, 5), remoteMod(2, 5)}
	led := emptyLedger(t)

	first := BuildPlan(items, remote, led, log)
	second := BuildPlan(items, remote, led, log)
	if !reflect.DeepEqual(first, second) {
		t.Error("BuildPlan is not stable over identical inputs")
	}
}

func TestBuildPlanSkipsEntriesWithoutFiles(t *testing.T) {
	log := zap.NewNop().Sugar()
	noFile := remoteMod(1, 5)
	noFile.Modfile = nil

	plan := BuildPlan(nil, []modio.Mod{noFile}, emptyLedger(t), log)
	if len(plan.ToInstall) != 0 || len(plan.ToUpdate) != 0 {
		t.Errorf("plan = %+v, want empty for a file-less catalog entry", plan)
	}
}

func TestBuildPlanExcludesLocallyAuthoredMods(t *testing.T) {
	log := zap.NewNop().Sugar()
	plan := BuildPlan([]inventory.Item{localItem(t, "Me.MyMod")}, nil, emptyLedger(t), log)
	if len(plan.ToSubscribe) != 0 {
		t.Errorf("ToSubscribe = %+v, locally authored mods must not be offered for subscription", plan.ToSubscribe)
	}
}

func TestBuildPlanEqualTimestampIsUpToDate(t *testing.T) {
	log := zap.NewNop().Sugar()
	items := []inventory.Item{installedItem(t, "Author.A", 1, 5000)}
	led := emptyLedger(t)
	if err := led.MarkSubscribed(items[0].Path); err != nil {
		t.Fatal(err)
	}

	plan := BuildPlan(items, []modio.Mod{remoteMod(1, 5)}, led, log)
	if len(plan.ToUpdate) != 0 {
		t.Errorf("ToUpdate = %+v, want none when timestamps are equal", plan.ToUpdate)
	}
}
