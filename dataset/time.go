/*
Copyright © 2022 the metadata-inspector authors.
This file is part of metadata-inspector.

metadata-inspector is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metadata-inspector is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metadata-inspector.  If not, see <http://www.gnu.org/licenses/>.
*/

package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var noLeapDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
var allLeapDays = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
var equalDays = [12]int{30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30}

var refLayouts = []string{
	"2006-1-2 15:4:5.999999999",
	"2006-1-2T15:4:5.999999999",
	"2006-1-2 15:4",
	"2006-1-2",
	"2006-1",
	"2006",
}

// DecodeTime converts numeric time-axis values to calendar dates
// following the CF conventions: units is of the form
// "<interval> since <reference>" and calendar selects the year layout.
// The "standard", "gregorian" and "proleptic_gregorian" calendars use
// real dates; "noleap"/"365_day", "all_leap"/"366_day" and "360_day" use
// fixed-length years.
func DecodeTime(values []float64, units, calendar string) ([]time.Time, error) {
	unitSec, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	cal := strings.ToLower(strings.TrimSpace(calendar))
	var monthDays []int
	switch cal {
	case "", "standard", "gregorian", "proleptic_gregorian", "julian":
		monthDays = nil
	case "noleap", "365_day":
		monthDays = noLeapDays[:]
	case "all_leap", "366_day":
		monthDays = allLeapDays[:]
	case "360_day":
		monthDays = equalDays[:]
	default:
		return nil, fmt.Errorf("dataset: unsupported calendar %q", calendar)
	}
	out := make([]time.Time, len(values))
	for i, v := range values {
		if monthDays == nil {
			out[i] = ref.Add(time.Duration(v * unitSec * float64(time.Second)))
		} else {
			out[i] = addFixed(ref, v*unitSec, monthDays)
		}
	}
	return out, nil
}

// parseTimeUnits splits a CF units string into the interval length in
// seconds and the reference date.
func parseTimeUnits(units string) (float64, time.Time, error) {
	fields := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(fields) != 2 {
		return 0, time.Time{}, fmt.Errorf("dataset: cannot parse time units %q", units)
	}
	var unitSec float64
	switch strings.ToLower(strings.TrimSpace(fields[0])) {
	case "second", "seconds", "sec", "secs", "s":
		unitSec = 1
	case "minute", "minutes", "min", "mins":
		unitSec = 60
	case "hour", "hours", "hr", "hrs", "h":
		unitSec = 3600
	case "day", "days", "d":
		unitSec = 86400
	default:
		return 0, time.Time{}, fmt.Errorf("dataset: unknown time interval in units %q", units)
	}
	refStr := strings.TrimSpace(fields[1])
	// Some reference dates carry a trailing zone designator that the
	// layouts below do not cover.
	refStr = strings.TrimSuffix(refStr, "Z")
	refStr = strings.TrimSuffix(refStr, " UTC")
	for _, layout := range refLayouts {
		if ref, err := time.Parse(layout, refStr); err == nil {
			return unitSec, ref.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("dataset: cannot parse reference date %q", refStr)
}

// addFixed advances the reference date by sec seconds in a calendar
// whose months always have the given lengths.
func addFixed(ref time.Time, sec float64, monthDays []int) time.Time {
	yearLen := 0
	for _, d := range monthDays {
		yearLen += d
	}
	days := math.Floor(sec / 86400)
	remSec := sec - days*86400

	y := ref.Year()
	doy := dayOfYearFixed(int(ref.Month()), ref.Day(), monthDays) + int(days)
	for doy < 0 {
		doy += yearLen
		y--
	}
	y += doy / yearLen
	doy %= yearLen
	m, d := monthDayFixed(doy, monthDays)

	clock := time.Duration(remSec*float64(time.Second)) +
		time.Duration(ref.Hour())*time.Hour +
		time.Duration(ref.Minute())*time.Minute +
		time.Duration(ref.Second())*time.Second
	if clock >= 24*time.Hour {
		clock -= 24 * time.Hour
		m, d, y = nextDayFixed(m, d, y, monthDays)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Add(clock)
}

// dayOfYearFixed returns the zero-based day of year for a month/day pair.
func dayOfYearFixed(month, day int, monthDays []int) int {
	doy := day - 1
	for m := 0; m < month-1; m++ {
		doy += monthDays[m]
	}
	return doy
}

// monthDayFixed converts a zero-based day of year back to month and day.
func monthDayFixed(doy int, monthDays []int) (month, day int) {
	month = 1
	for doy >= monthDays[month-1] {
		doy -= monthDays[month-1]
		month++
	}
	return month, doy + 1
}

func nextDayFixed(m, d, y int, monthDays []int) (int, int, int) {
	d++
	if d > monthDays[m-1] {
		d = 1
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return m, d, y
}
