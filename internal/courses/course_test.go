package courses

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"
)

func TestWithDetailsBookable(t *testing.T) {
	start := time.Date(2025, 11, 19, 18, 0, 0, 0, chrono.Berlin())
	listed := fromSummary(vhs.CourseSummary{
		Id:        "252-A4200",
		Title:     "VHS-Kurs: Rhetorik",
		Start:     start,
		Available: true,
		Bookable:  true,
	})

	// no status region on the detail page
	enriched := listed.withDetails(vhs.CourseDetails{Id: "252-A4200", Start: start})
	require.True(t, enriched.HasDetails)
	require.True(t, enriched.Bookable)

	enriched = listed.withDetails(vhs.CourseDetails{Id: "252-A4200", Start: start, HasStatus: true})
	require.False(t, enriched.Bookable)

	notBookable := listed
	notBookable.Bookable = false
	enriched = notBookable.withDetails(vhs.CourseDetails{Id: "252-A4200", Bookable: true, HasStatus: true})
	require.True(t, enriched.Bookable)
	require.True(t, listed.Bookable)
	require.False(t, notBookable.Bookable)
}
