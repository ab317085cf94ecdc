package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/courses"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/configutil"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	asJson     *bool
)

var rootCmd = &cobra.Command{
	Use:   "vhs-cli",
	Short: "vhs-cli lists the courses of the Volkshochschule Vorpommern-Greifswald.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", courses.ConfigName, "The config file, a .local variant next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
	asJson = rootCmd.PersistentFlags().Bool("json", false, "Print results as json instead of a table.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() courses.Config {
	config, err := configutil.ReadConfigOr(*configPath, courses.DefaultConfig())
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return config
}

// newService reads the config, sets up tracing if configured and returns the
// service with a function that flushes telemetry.
func newService(ctx context.Context) (courses.Service, func()) {
	config := readConfig()

	providers, err := telemetry.Setup(ctx, "vhs-cli", config.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	service, err := courses.NewService(config, chrono.NewStandardTime(), telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to create service", err)
	}

	return service, func() {
		err := providers.Shutdown(context.Background())
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
