package commands

import (
	"fmt"
	"os"

	"github.com/Missing-API/vhs-vg-courses-sub000/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var detailLocation *string

func init() {
	detailLocation = detailCmd.Flags().String("location", "", "The location the course belongs to, resolves venues named only \"VHS\".")
	rootCmd.AddCommand(detailCmd)
}

var detailCmd = &cobra.Command{
	Use:   "detail <course-id> [--location <location>]",
	Short: "Shows the detail page of a course.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, shutdown := newService(cmd.Context())
		defer shutdown()

		details, warnings, err := service.Details(cmd.Context(), args[0], *detailLocation)
		if err != nil {
			serviceutil.Fatal("failed to fetch course details", err)
		}

		if *asJson {
			printJson(details)
			return
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"Kursnr.", details.Id},
			{"Titel", details.Title},
			{"Beginn", formatStart(details.Start)},
			{"Dauer", details.DurationText},
			{"Termine", details.NumberOfDates},
			{"Ort", details.Location.Name},
			{"Raum", details.Location.Room},
			{"Adresse", details.Location.Address},
			{"Buchbar", yesNo(details.Bookable)},
		})
		t.Render()

		if len(details.Schedule) > 0 {
			schedule := newTable()
			schedule.AppendHeader(table.Row{"Datum", "Beginn", "Ende", "Ort", "Raum"})
			for _, session := range details.Schedule {
				schedule.AppendRow(table.Row{
					session.Date.String(),
					session.Start.Format("15:04"),
					session.End.Format("15:04"),
					session.Location,
					session.Room,
				})
			}
			schedule.Render()
		}

		if details.Description != "" {
			fmt.Println()
			fmt.Println(details.Description)
		}
		for _, warning := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", warning)
		}
	},
}
