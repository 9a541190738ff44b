package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/syncer"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe to all installed mods on mod.io",
	Long: `Subscribes your mod.io account to every mod installed in the mod
folder that is not yet recorded in the subscription ledger.`,
	Run: func(_ *cobra.Command, _ []string) {
		executeRun("subscribe", runSubscribe)
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(ctx context.Context, a *app, progress chan<- syncer.ProgressMsg) syncer.Summary {
	// Subscribing needs no remote listing: the plan is driven purely by the
	// local inventory and the ledger.
	plan := syncer.BuildPlan(a.items, nil, a.led, logger.Log)
	logger.Log.Infof("Subscribing to %d installed mods", len(plan.ToSubscribe))
	return a.newRunner(progress).Subscribe(ctx, plan)
}
