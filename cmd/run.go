package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/syncer"
	"bonelab-mod-manager/ui"
)

// runFunc is the body of one sync command: it executes actions and streams
// progress to the UI layer.
type runFunc func(ctx context.Context, a *app, progress chan<- syncer.ProgressMsg) syncer.Summary

// executeRun bootstraps the app and drives fn, with a spinner TUI on a
// terminal and plain log output otherwise. Ctrl-C cancels between actions;
// completed manifests and ledger entries are real progress either way.
func executeRun(title string, fn runFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := bootstrap(ctx)

	progress := make(chan syncer.ProgressMsg, 100) // Buffer slightly to avoid blocking
	var summary syncer.Summary

	if isatty.IsTerminal(os.Stdout.Fd()) {
		model := newSyncModel(title, progress)
		go func() {
			defer close(progress)
			summary = fn(ctx, a, progress)
			progress <- syncer.ProgressMsg{Type: "summary", Message: summary.String()}
		}()
		if _, err := tea.NewProgram(model).Run(); err != nil {
			logger.Log.Errorw("TUI failed", zap.Error(err))
		}
	} else {
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for msg := range progress {
				switch msg.Type {
				case "error":
					logger.Log.Errorw(msg.Message, zap.String("mod", msg.Name))
				default:
					logger.Log.Infow(msg.Message, zap.String("mod", msg.Name))
				}
			}
		}()
		summary = fn(ctx, a, progress)
		close(progress)
		<-drained
	}

	printSummary(title, summary)
	logger.Log.Infof("%s finished: %s", title, summary)
}

func printSummary(title string, sum syncer.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Action", "Completed", "Skipped", "Failed"})
	t.AppendRow(table.Row{
		title,
		ui.Status(fmt.Sprintf("%d", sum.Completed), "done"),
		ui.Status(fmt.Sprintf("%d", sum.Skipped), "skipped"),
		ui.Status(fmt.Sprintf("%d", sum.Failed), "failed"),
	})
	t.Render()
}

// newRunner builds the executor all sync commands share.
func (a *app) newRunner(progress chan<- syncer.ProgressMsg) *syncer.Runner {
	return &syncer.Runner{
		Client:    a.client,
		Installer: a.installer,
		Ledger:    a.led,
		Log:       logger.Log,
		Progress:  progress,
	}
}
