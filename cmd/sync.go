package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/syncer"
)

// syncCmd runs all three reconciliation phases in order. It is also what the
// bare root command runs.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Subscribe, update and install in one run",
	Long: `Performs a full reconciliation: subscribes to installed mods,
updates stale ones and installs missing subscriptions.`,
	Run: func(_ *cobra.Command, _ []string) {
		executeRun("sync", runSync)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, a *app, progress chan<- syncer.ProgressMsg) syncer.Summary {
	remote, err := a.remoteView(ctx, true)
	if err != nil {
		logger.Log.Errorw("Failed to fetch remote state", zap.Error(err))
		progress <- syncer.ProgressMsg{Type: "error", Name: "mod.io", Message: err.Error()}
		return syncer.Summary{Failed: 1}
	}

	plan := syncer.BuildPlan(a.items, remote, a.led, logger.Log)
	logger.Log.Infof("Plan: %d to subscribe, %d to update, %d to install",
		len(plan.ToSubscribe), len(plan.ToUpdate), len(plan.ToInstall))

	runner := a.newRunner(progress)
	var total syncer.Summary
	for _, phase := range []func(context.Context, syncer.Plan) syncer.Summary{
		runner.Subscribe,
		runner.Update,
		runner.Install,
	} {
		sum := phase(ctx, plan)
		total.Completed += sum.Completed
		total.Skipped += sum.Skipped
		total.Failed += sum.Failed
	}
	return total
}
