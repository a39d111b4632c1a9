package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"mediagrab/internal/app"
	"mediagrab/internal/handlers"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [url]",
	Short: "Show title and artist for a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.HistoryDB = ""
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		name, _ := cmd.Flags().GetString("platform")
		if name == "" {
			name = handlers.DetectPlatform(args[0])
		}
		adapter, ok := a.Scheduler.Adapter(name)
		if !ok {
			return fmt.Errorf("cannot tell the platform of %q, pass --platform", args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.PreviewTimeout)
		defer cancel()
		meta, err := adapter.FetchMetadata(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"platform":  name,
			"title":     meta.Title,
			"artist":    meta.Author,
			"thumbnail": meta.Thumbnail,
			"duration":  meta.Duration.Seconds(),
		})
	},
}

func init() {
	previewCmd.Flags().StringP("platform", "p", "", "youtube, spotify or tiktok")
}
