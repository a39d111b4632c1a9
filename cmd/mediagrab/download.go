package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"mediagrab/internal/app"
	"mediagrab/internal/handlers"
	"mediagrab/internal/models"

	"github.com/spf13/cobra"
)

var (
	downloadPlatform string
	downloadFormat   string
	downloadQuality  string
)

var downloadCmd = &cobra.Command{
	Use:   "download [url-or-query...]",
	Short: "Download one or more references and wait for them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadPlatform, "platform", "p", "", "youtube, spotify or tiktok (detected from the URL when empty)")
	downloadCmd.Flags().StringVarP(&downloadFormat, "format", "f", models.DefaultFormat, "Output format")
	downloadCmd.Flags().StringVarP(&downloadQuality, "quality", "q", models.DefaultQuality, "Audio quality")
}

func runDownload(cmd *cobra.Command, args []string) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := make([]string, 0, len(args))
	for _, ref := range args {
		name := downloadPlatform
		if name == "" {
			if name = handlers.DetectPlatform(ref); name == "" {
				name = "youtube"
			}
		}
		id, err := a.Scheduler.Submit(name, models.TaskRequest{
			Reference: ref,
			Format:    downloadFormat,
			Quality:   downloadQuality,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		ids = append(ids, id)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	failed := 0
	for _, id := range ids {
		task, err := waitWithProgress(ctx, a, id)
		if err != nil {
			return err
		}
		if task.Status == models.TaskStatusFailed {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", task.Request.Reference, task.Error)
			continue
		}
		fmt.Printf("✓ %s -> %s\n", task.Request.Reference, task.Result.FilePath)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(ids))
	}
	return nil
}

func waitWithProgress(ctx context.Context, a *app.App, id string) (models.Task, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		task, err := a.Registry.Get(id)
		if err != nil {
			return task, err
		}
		if task.Progress != last && !task.Status.IsTerminal() {
			fmt.Fprintf(os.Stderr, "  [%3d%%] %s\n", task.Progress, task.Message)
			last = task.Progress
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}
