package matching

import "time"

const minutesPerWeek = 7 * 24 * 60

// weekMinute converts a weekday+minute-of-day pair into an absolute
// minute-of-week, with Monday as 0 for stable, locale-independent ordering.
func weekMinute(wd time.Weekday, minuteOfDay int) int {
	// time.Weekday: Sunday=0 .. Saturday=6. Rebase so Monday=0.
	day := (int(wd) + 6) % 7
	return day*24*60 + minuteOfDay
}

// interval is an absolute-minute-of-week [start, end) range. A window may
// wrap past the end of the week; callers split those into two intervals.
type interval struct {
	start, end int
}

func windowToIntervals(w AvailabilityWindow) []interval {
	start := weekMinute(w.Weekday, w.StartMin)
	end := weekMinute(w.Weekday, w.EndMin)
	if end <= start {
		// Wraps past the end of the week (or zero-length): split.
		return []interval{{start, minutesPerWeek}, {0, end}}
	}
	return []interval{{start, end}}
}

// overlapMinutes returns the total overlap, in minutes, between two sets
// of absolute-minute-of-week intervals.
func overlapMinutes(a, b []interval) int {
	total := 0
	for _, x := range a {
		for _, y := range b {
			s := max(x.start, y.start)
			e := min(x.end, y.end)
			if e > s {
				total += e - s
			}
		}
	}
	return total
}

// exceptionIntervals resolves the applicable exception (if any) for a
// given date within the current week, returning the override intervals and
// whether it's a full blackout for that day.
func exceptionIntervals(exceptions []AvailabilityException, date string) (intervals []interval, blackout, found bool) {
	for _, ex := range exceptions {
		if ex.Date != date {
			continue
		}
		found = true
		if ex.Blackout {
			return nil, true, true
		}
		for _, w := range ex.Windows {
			intervals = append(intervals, windowToIntervals(w)...)
		}
		return intervals, false, true
	}
	return nil, false, false
}

// resolveWeek expands an Availability into absolute-minute-of-week
// intervals for the week containing `now`, applying any exceptions dated
// within that week (spec §4.3 rule 7: "applying exceptions within the
// current week").
func resolveWeek(avail Availability, now time.Time) []interval {
	var out []interval
	exceptedDays := map[time.Weekday]bool{}

	weekStart := now.AddDate(0, 0, -int((now.Weekday()+6)%7))
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		intervals, blackout, found := exceptionIntervals(avail.Exceptions, date)
		if !found {
			continue
		}
		exceptedDays[day.Weekday()] = true
		if !blackout {
			out = append(out, intervals...)
		}
	}

	for _, w := range avail.Weekly {
		if exceptedDays[w.Weekday] {
			continue
		}
		out = append(out, windowToIntervals(w)...)
	}
	return out
}

// availabilityOverlapMinutes computes the weekly overlap, in minutes,
// between two personas' availability, honoring time zones and the current
// week's exceptions (spec §4.3 rule 7). Weekly windows are defined in each
// persona's own local time; `tzA`/`tzB` are their IANA time zone names
// (usually `General.Location.TimeZone`). An absent availability (no
// weekly windows and no exceptions) contributes zero overlap.
func availabilityOverlapMinutes(a Availability, tzA string, b Availability, tzB string, now time.Time) int {
	if len(a.Weekly) == 0 && len(a.Exceptions) == 0 {
		return 0
	}
	if len(b.Weekly) == 0 && len(b.Exceptions) == 0 {
		return 0
	}
	nowA := inLocation(now, tzA)
	nowB := inLocation(now, tzB)
	utcA := shiftAll(resolveWeek(a, nowA), utcOffsetMinutes(nowA))
	utcB := shiftAll(resolveWeek(b, nowB), utcOffsetMinutes(nowB))
	return overlapMinutes(utcA, utcB)
}

// inLocation converts `now` into the given IANA time zone name, falling
// back to UTC if the zone is unknown or empty.
func inLocation(now time.Time, tz string) time.Time {
	if tz == "" {
		return now.UTC()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}

// utcOffsetMinutes returns t's offset east of UTC, in minutes.
func utcOffsetMinutes(t time.Time) int {
	_, offsetSec := t.Zone()
	return offsetSec / 60
}

// shiftAll converts a set of local-time absolute-minute-of-week intervals
// into the common UTC axis so two personas in different time zones can be
// compared directly, splitting any interval that wraps past the week
// boundary after the shift.
func shiftAll(intervals []interval, offsetMinutes int) []interval {
	out := make([]interval, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, shiftInterval(iv, offsetMinutes)...)
	}
	return out
}

func shiftInterval(iv interval, offsetMinutes int) []interval {
	length := iv.end - iv.start
	start := mod(iv.start-offsetMinutes, minutesPerWeek)
	end := start + length
	if end <= minutesPerWeek {
		return []interval{{start, end}}
	}
	return []interval{{start, minutesPerWeek}, {0, end - minutesPerWeek}}
}

func mod(v, m int) int {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}
