package commands

import (
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Lists the locations courses can be searched for.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if *asJson {
			printJson(vhs.Locations)
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Name", "Adresse"})
		for _, loc := range vhs.Locations {
			t.AppendRow(table.Row{loc.Id, loc.Name, loc.Address})
		}
		t.Render()
	},
}
