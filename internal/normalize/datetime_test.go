package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
)

func TestParseDateTime(t *testing.T) {
	berlin := chrono.Berlin()

	cases := []struct {
		name    string
		input   string
		want    time.Time
		hasTime bool
	}{
		{
			name:    "site format",
			input:   "Mi., 12.11.2025, um 17:00 Uhr",
			want:    time.Date(2025, 11, 12, 17, 0, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:    "schedule row",
			input:   "Mittwoch • 12.11.2025 • 17:00 - 20:15 Uhr",
			want:    time.Date(2025, 11, 12, 17, 0, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:    "hour only",
			input:   "Sa., 07.03.2026, 9 Uhr",
			want:    time.Date(2026, 3, 7, 9, 0, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:  "date only",
			input: "12.11.2025",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:    "bare time after date",
			input:   "Mi., 12.11.2025, 17:00",
			want:    time.Date(2025, 11, 12, 17, 0, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:    "start time after room",
			input:   "Mi., 12.11.2025, Raum 1.12, ab 18.30 Uhr",
			want:    time.Date(2025, 11, 12, 18, 30, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:  "date range with weekdays",
			input: "Mi., 12.11.2025 - Mi., 14.01.2026",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:  "date range",
			input: "12.11.2025 - 14.01.2026",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:  "date range with bis",
			input: "12.11.2025 bis 14.01.2026",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:  "room suffix",
			input: "Mi., 12.11.2025, Raum 1.12",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:  "house number suffix",
			input: "12.11.2025, Martin-Luther-Str. 7.10",
			want:  time.Date(2025, 11, 12, 0, 0, 0, 0, berlin),
		},
		{
			name:    "iso with offset",
			input:   "2025-11-12T17:00:00+01:00",
			want:    time.Date(2025, 11, 12, 17, 0, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:    "iso without zone is berlin local",
			input:   "2025-07-01T18:30",
			want:    time.Date(2025, 7, 1, 18, 30, 0, 0, berlin),
			hasTime: true,
		},
		{
			name:  "iso date",
			input: "2025-07-01",
			want:  time.Date(2025, 7, 1, 0, 0, 0, 0, berlin),
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			parsed, err := ParseDateTime(c.input)
			require.NoError(t, err)
			require.True(t, c.want.Equal(parsed.Time), "want %s, got %s", c.want, parsed.Time)
			require.Equal(t, c.hasTime, parsed.HasTime)
		})
	}
}

func TestParseDateTimeErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "demnächst", "31.02.2025", "Mittwoch"} {
		_, err := ParseDateTime(input)
		require.Truef(t, errors.Is(err, ErrUnparseableDate), "input %q: %v", input, err)
	}
}

func TestDaylightSavingOffsets(t *testing.T) {
	winter, err := ParseDateTime("Mi., 12.11.2025, um 17:00 Uhr")
	require.NoError(t, err)
	_, offset := winter.Time.Zone()
	require.Equal(t, 3600, offset)

	summer, err := ParseDateTime("Di., 01.07.2025, um 17:00 Uhr")
	require.NoError(t, err)
	_, offset = summer.Time.Zone()
	require.Equal(t, 7200, offset)
}

func TestFormatRoundTrip(t *testing.T) {
	berlin := chrono.Berlin()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, berlin)

	// every 7h17m over two years hits every weekday, both offsets and the
	// days around each transition
	for instant := start; instant.Year() < 2027; instant = instant.Add(7*time.Hour + 17*time.Minute) {
		formatted := FormatGermanDate(instant)
		parsed, err := ParseDateTime(formatted)
		require.NoError(t, err, formatted)
		require.True(t, parsed.HasTime)
		require.Equal(t, formatted, FormatGermanDate(parsed.Time))
		if !instant.Equal(parsed.Time) {
			// the repeated hour when daylight saving time ends is ambiguous
			diff := instant.Sub(parsed.Time)
			require.Truef(t, diff == time.Hour || diff == -time.Hour, "%s: want %s, got %s", formatted, instant, parsed.Time)
		}
	}
}

func TestFormatGermanDate(t *testing.T) {
	instant := time.Date(2025, 11, 12, 16, 0, 0, 0, time.UTC)
	require.Equal(t, "Mi., 12.11.2025, um 17:00 Uhr", FormatGermanDate(instant))
}

func TestParseTimeRange(t *testing.T) {
	tr, err := ParseTimeRange("17:00 - 20:15 Uhr")
	require.NoError(t, err)
	require.Equal(t, TimeRange{Start: ClockTime{Hour: 17, Minute: 0}, End: ClockTime{Hour: 20, Minute: 15}}, tr)

	tr, err = ParseTimeRange("9.30 bis 12.00")
	require.NoError(t, err)
	require.Equal(t, "09:30", tr.Start.String())
	require.Equal(t, "12:00", tr.End.String())

	_, err = ParseTimeRange("17:00 Uhr")
	require.ErrorIs(t, err, ErrUnparseableTimeRange)

	_, err = ParseTimeRange("25:00 - 26:00")
	require.ErrorIs(t, err, ErrUnparseableTimeRange)
}

func TestParseSessionCount(t *testing.T) {
	cases := map[string]int{
		"5 Termine":              5,
		"1 Termin":               1,
		"10 x 90 Minuten":        10,
		"8 Abende à 2 UE":        8,
		"3 Vormittage":           3,
		"Kurs mit 12 Sitzungen":  12,
		"2 Tage, jeweils 6 Std.": 2,
	}
	for input, want := range cases {
		got, ok := ParseSessionCount(input)
		require.Truef(t, ok, "input %q", input)
		require.Equalf(t, want, got, "input %q", input)
	}

	_, ok := ParseSessionCount("90 Minuten")
	require.False(t, ok)
	_, ok = ParseSessionCount("")
	require.False(t, ok)
}

func TestDateText(t *testing.T) {
	d := Date{Year: 2025, Month: time.November, Day: 12}
	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "2025-11-12", string(text))

	var back Date
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, d, back)
	require.False(t, back.IsZero())
	require.True(t, Date{}.IsZero())
}
