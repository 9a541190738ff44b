// Package syncer computes what must change to bring the local mod directory
// in line with the user's mod.io subscriptions, and executes those changes
// through the install pipeline.
package syncer

import (
	"go.uber.org/zap"

	"bonelab-mod-manager/inventory"
	"bonelab-mod-manager/ledger"
	"bonelab-mod-manager/modio"
)

// GameID is the mod.io identifier for BONELAB; the manager syncs exactly one
// game per run.
const GameID uint64 = 3809

// UpdateAction pairs an installed item with the remote entry that obsoletes it.
type UpdateAction struct {
	Item   inventory.Item
	Remote modio.Mod
}

// Plan holds the three disjoint action sets produced by reconciliation.
type Plan struct {
	ToSubscribe []inventory.Item
	ToInstall   []modio.Mod
	ToUpdate    []UpdateAction
}

// BuildPlan diffs the local inventory against the remote subscription listing.
// It is pure: running it twice over the same inputs yields the same plan.
//
// Remote entries without a downloadable file are not actionable; they are
// logged and left out of ToInstall/ToUpdate entirely. Remote timestamps are
// unix seconds and local updateDate is milliseconds, so the remote side is
// scaled before comparison; equal timestamps count as up to date.
func BuildPlan(items []inventory.Item, remote []modio.Mod, led *ledger.Ledger, log *zap.SugaredLogger) Plan {
	var plan Plan

	installedByModID := make(map[uint64]inventory.Item)
	for _, item := range items {
		modID, ok := item.ModID()
		if !ok {
			continue // locally authored, excluded from sync
		}
		installedByModID[modID] = item

		if !led.IsSubscribed(item.Path) {
			plan.ToSubscribe = append(plan.ToSubscribe, item)
		}
	}

	for _, mod := range remote {
		if mod.Modfile == nil {
			log.Infow("Skipping catalog entry with no downloadable file",
				zap.String("mod", mod.Name),
				zap.Uint64("mod_id", mod.ID),
			)
			continue
		}

		item, installed := installedByModID[mod.ID]
		if !installed {
			plan.ToInstall = append(plan.ToInstall, mod)
			continue
		}

		installedMillis, err := item.Manifest.UpdateDateMillis()
		if err != nil {
			log.Warnw("Installed mod has unparseable update date, treating as stale",
				zap.String("barcode", item.Barcode()),
				zap.Error(err),
			)
			installedMillis = 0
		}
		if mod.DateUpdated*1000 > installedMillis {
			plan.ToUpdate = append(plan.ToUpdate, UpdateAction{Item: item, Remote: mod})
		}
	}

	return plan
}
