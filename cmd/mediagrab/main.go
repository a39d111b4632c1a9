package main

import (
	"fmt"
	"os"

	"mediagrab/internal/config"
	"mediagrab/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "mediagrab",
	Short:   "Download audio and video from YouTube, Spotify and TikTok",
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if downloadsDir != "" {
			cfg.DownloadsDir = downloadsDir
		}
		return nil
	},
	SilenceUsage: true,
}

var (
	cfg          *config.Config
	downloadsDir string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&downloadsDir, "dir", "", "Output directory (overrides DOWNLOADS_DIR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(formatsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
