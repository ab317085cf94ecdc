package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/courses"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/coursestore"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	coursesDetails   *bool
	coursesBatchSize *int
	coursesDb        *string
)

func init() {
	coursesDetails = coursesCmd.Flags().Bool("details", false, "Also fetch the detail page of every course.")
	coursesBatchSize = coursesCmd.Flags().Int("batch-size", 0, "The initial number of detail pages fetched at once, 0 uses the config.")
	coursesDb = coursesCmd.Flags().String("db", "", "A sqlite database to write the result to.")
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses <location> [--details] [--batch-size <n>] [--db <path/to/output.db>]",
	Short: "Lists the upcoming courses of a location.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, shutdown := newService(cmd.Context())
		defer shutdown()

		t1 := time.Now()
		result, err := service.Courses(cmd.Context(), courses.Request{
			Location:       args[0],
			IncludeDetails: *coursesDetails,
			BatchSize:      *coursesBatchSize,
		})
		if err != nil {
			serviceutil.Fatal("failed to fetch courses", err)
		}
		slog.Info("crawl time", "seconds", time.Since(t1).Seconds(), "courses", result.Total)

		if *coursesDb != "" {
			writeDb(cmd, result)
		}

		if *asJson {
			printJson(result)
			return
		}

		t := newTable()
		header := table.Row{"Kursnr.", "Titel", "Beginn", "Ort", "Frei", "Buchbar"}
		if *coursesDetails {
			header = append(header, "Termine", "Adresse")
		}
		t.AppendHeader(header)
		for _, c := range result.Courses {
			row := table.Row{c.Id, c.Title, formatStart(c.Start), c.LocationText, yesNo(c.Available), yesNo(c.Bookable)}
			if *coursesDetails {
				address := ""
				if c.Location != nil {
					address = c.Location.Address
				}
				row = append(row, c.NumberOfDates, address)
			}
			t.AppendRow(row)
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d Kurse", result.Total)})
		t.Render()

		for _, warning := range result.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", warning)
		}
		if result.Stats != nil {
			fmt.Fprintf(
				os.Stderr,
				"details: %d attempted, %d succeeded, %d failed, %d cache hits in %d batches (%s)\n",
				result.Stats.Attempted, result.Stats.Succeeded, result.Stats.Failed,
				result.Stats.CacheHits, result.Stats.Batches, result.Stats.Duration.Round(time.Millisecond),
			)
		}
	},
}

func writeDb(cmd *cobra.Command, result courses.Result) {
	store, database, err := coursestore.Open(*coursesDb)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	defer database.Close()

	_, err = store.Save(cmd.Context(), toCrawl(result, time.Now()))
	if err != nil {
		serviceutil.Fatal("failed to write db", err)
	}
	slog.Info("wrote result", "db", *coursesDb)
}

func toCrawl(result courses.Result, now time.Time) coursestore.Crawl {
	crawl := coursestore.Crawl{
		Location:  result.Location.Id,
		CrawledAt: now,
	}
	for _, c := range result.Courses {
		record := coursestore.Course{
			Id:            c.Key(),
			Title:         c.Title,
			DetailUrl:     c.DetailUrl,
			Start:         c.Start,
			End:           c.End,
			LocationText:  c.LocationText,
			Available:     c.Available,
			Bookable:      c.Bookable,
			Description:   c.Description,
			DurationText:  c.DurationText,
			NumberOfDates: c.NumberOfDates,
		}
		if c.Location != nil {
			record.LocationName = c.Location.Name
			record.Room = c.Location.Room
			record.Address = c.Location.Address
		}
		for _, session := range c.Schedule {
			record.Sessions = append(record.Sessions, coursestore.Session{
				Date:     session.Date.String(),
				Start:    session.Start,
				End:      session.End,
				Location: session.Location,
				Room:     session.Room,
			})
		}
		crawl.Courses = append(crawl.Courses, record)
	}
	return crawl
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return normalize.FormatGermanDate(t.In(chrono.Berlin()))
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return "nein"
}

func printJson(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(v)
	if err != nil {
		serviceutil.Fatal("failed to encode result", err)
	}
}
