package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"mediagrab/internal/models"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List output formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFORMAT\tQUALITY\tDESCRIPTION")
		for _, f := range models.Formats {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Format, f.Quality, f.Description)
		}
		return w.Flush()
	},
}
