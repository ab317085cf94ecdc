package telemetry

import (
	"log/slog"
	"os"
	"strconv"
)

// SlogAPI implements API on the default slog logger, params are logged as
// params.0, params.1 and so on.
type SlogAPI struct{}

func attrs(id string, params []any) []any {
	out := make([]any, 0, 2+2*len(params))
	if id != "" {
		out = append(out, "id", id)
	}
	for i, p := range params {
		out = append(out, "params."+strconv.Itoa(i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs(id, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs(id, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, attrs("", params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}

// InitSlog installs a text handler on stderr as the default slog logger.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
