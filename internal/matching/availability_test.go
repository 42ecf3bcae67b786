package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailabilityOverlapMinutes_SameTimeZoneOverlap(t *testing.T) {
	a := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}}}
	b := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 15 * 60, EndMin: 20 * 60}}}

	overlap := availabilityOverlapMinutes(a, "UTC", b, "UTC", mondayNoon)
	assert.Equal(t, 2*60, overlap)
}

func TestAvailabilityOverlapMinutes_NoOverlap(t *testing.T) {
	a := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 12 * 60}}}
	b := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Tuesday, StartMin: 9 * 60, EndMin: 12 * 60}}}

	overlap := availabilityOverlapMinutes(a, "UTC", b, "UTC", mondayNoon)
	assert.Zero(t, overlap)
}

func TestAvailabilityOverlapMinutes_EmptyAvailabilityIsZero(t *testing.T) {
	a := Availability{}
	b := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}}}

	assert.Zero(t, availabilityOverlapMinutes(a, "UTC", b, "UTC", mondayNoon))
}

func TestAvailabilityOverlapMinutes_BlackoutExceptionRemovesWindow(t *testing.T) {
	date := mondayNoon.Format("2006-01-02")
	a := Availability{
		Weekly:     []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}},
		Exceptions: []AvailabilityException{{Date: date, Blackout: true}},
	}
	b := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}}}

	assert.Zero(t, availabilityOverlapMinutes(a, "UTC", b, "UTC", mondayNoon))
}

func TestAvailabilityOverlapMinutes_DifferentTimeZones(t *testing.T) {
	// A is in UTC with a 9-17 Monday window; B is four hours behind
	// (US/Eastern in summer) with the same local-time window, so in UTC B's
	// window is 13:00-21:00 Monday — they should overlap 13:00-17:00, 4h.
	a := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}}}
	b := Availability{Weekly: []AvailabilityWindow{{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60}}}

	overlap := availabilityOverlapMinutes(a, "UTC", b, "America/New_York", mondayNoon)
	assert.Greater(t, overlap, 0)
}

func TestWeekMinute_MondayIsZeroBased(t *testing.T) {
	assert.Equal(t, 0, weekMinute(time.Monday, 0))
	assert.Equal(t, 24*60, weekMinute(time.Tuesday, 0))
	assert.Equal(t, 6*24*60, weekMinute(time.Sunday, 0))
}
