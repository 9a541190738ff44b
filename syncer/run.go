package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bonelab-mod-manager/history"
	"bonelab-mod-manager/ledger"
	"bonelab-mod-manager/modio"
	"bonelab-mod-manager/retry"
)

// ProgressMsg reports one step of a run to the UI layer.
type ProgressMsg struct {
	Type    string // "status", "action_start", "action_done", "action_skipped", "error", "summary", "done"
	Name    string
	Message string
}

// Summary counts how the actions of a run ended.
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d completed, %d skipped, %d failed", s.Completed, s.Skipped, s.Failed)
}

// Runner executes the action sets of a plan sequentially. Per-item failures
// are reported and the run continues; only context cancellation stops it.
type Runner struct {
	Client    *modio.Client
	Installer *Installer
	Ledger    *ledger.Ledger
	Log       *zap.SugaredLogger
	Progress  chan<- ProgressMsg
}

func (r *Runner) report(msg ProgressMsg) {
	if r.Progress != nil {
		r.Progress <- msg
	}
}

// Subscribe runs the ToSubscribe actions: each installed-but-unconfirmed mod
// is subscribed through the retry controller and recorded in the ledger.
func (r *Runner) Subscribe(ctx context.Context, plan Plan) Summary {
	var sum Summary
	for _, item := range plan.ToSubscribe {
		if ctx.Err() != nil {
			break
		}
		modID, ok := item.ModID()
		if !ok {
			continue
		}
		name := item.Barcode()
		r.report(ProgressMsg{Type: "action_start", Name: name, Message: "subscribing"})

		err := retry.Do(ctx, func() error {
			return r.Client.Subscribe(ctx, GameID, modID)
		}, func(err error) bool {
			if modio.IsRateLimited(err) {
				r.report(ProgressMsg{Type: "status", Name: name, Message: "rate limited, backing off"})
				return true
			}
			return false
		})
		if err != nil {
			sum.Failed++
			r.Log.Errorw("Failed to subscribe", zap.String("barcode", name), zap.Error(err))
			r.report(ProgressMsg{Type: "error", Name: name, Message: err.Error()})
			continue
		}

		if err := r.Ledger.MarkSubscribed(item.Path); err != nil {
			r.Log.Warnw("Failed to record subscription in ledger", zap.String("path", item.Path), zap.Error(err))
		}
		sum.Completed++
		r.report(ProgressMsg{Type: "action_done", Name: name, Message: "subscribed"})
	}
	return sum
}

// Install runs the ToInstall actions through the pipeline.
func (r *Runner) Install(ctx context.Context, plan Plan) Summary {
	var sum Summary
	for _, mod := range plan.ToInstall {
		if ctx.Err() != nil {
			break
		}
		r.report(ProgressMsg{Type: "action_start", Name: mod.Name, Message: "installing"})
		res := r.Installer.Install(ctx, mod)
		r.finish(&sum, mod, res, history.ActionInstall)
	}
	return sum
}

// Update runs the ToUpdate actions through the pipeline.
func (r *Runner) Update(ctx context.Context, plan Plan) Summary {
	var sum Summary
	for _, action := range plan.ToUpdate {
		if ctx.Err() != nil {
			break
		}
		r.report(ProgressMsg{Type: "action_start", Name: action.Remote.Name, Message: "updating"})
		res := r.Installer.Update(ctx, action)
		r.finish(&sum, action.Remote, res, history.ActionUpdate)
	}
	return sum
}

func (r *Runner) finish(sum *Summary, mod modio.Mod, res Result, action string) {
	switch res.Outcome {
	case Done:
		sum.Completed++
		r.recordHistory(mod, res, action)
		r.report(ProgressMsg{Type: "action_done", Name: mod.Name, Message: res.Version})
	case Skipped:
		sum.Skipped++
		r.report(ProgressMsg{Type: "action_skipped", Name: mod.Name})
	case Failed:
		sum.Failed++
		r.Log.Errorw("Action failed", zap.String("mod", mod.Name), zap.Error(res.Err))
		r.report(ProgressMsg{Type: "error", Name: mod.Name, Message: res.Err.Error()})
	}
}

func (r *Runner) recordHistory(mod modio.Mod, res Result, action string) {
	if history.DB == nil {
		return
	}
	rec := history.InstallRecord{
		Barcode:     res.Barcode,
		ModID:       mod.ID,
		FileID:      res.FileID,
		Version:     res.Version,
		Title:       mod.Name,
		Action:      action,
		ArchivePath: res.ArchivePath,
	}
	if err := history.DB.Create(&rec).Error; err != nil {
		r.Log.Warnw("Failed to save install history", zap.String("barcode", res.Barcode), zap.Error(err))
	}
}
