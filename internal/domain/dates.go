package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	// FileDateFormat is the date suffix on raw and processed file names,
	// e.g. siconca_20200131.nc.
	FileDateFormat = "20060102"

	// ManifestDateFormat is how dates are recorded in dataset manifests.
	ManifestDateFormat = "2006_01_02"
)

// dateRe tolerates both 2020-1-3 and 2020-01-03 in user input.
var dateRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// fileDateSuffixRe matches the _YYYYMMDD.nc suffix on raw daily files.
var fileDateSuffixRe = regexp.MustCompile(`_(\d{8})\.nc$`)

// FileDate extracts the date from a raw daily file name such as
// siconca_20200131.nc. The second return is false when the name carries no
// parseable date suffix.
func FileDate(name string) (time.Time, bool) {
	m := fileDateSuffixRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(FileDateFormat, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseDate parses a YYYY-M-D calendar date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q: no such calendar day", s)
	}
	return d, nil
}

// DateRange returns every day from start to end inclusive. An end before
// start yields an empty slice.
func DateRange(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// WorkingDates merges the lag/lead windows of all target dates into one
// sorted, deduplicated date set. For each target d it pulls in d-lag..d and
// d+1..d+lead; overlapping windows from nearby targets collapse so every raw
// file is discovered once.
func WorkingDates(targets []time.Time, lag, lead int) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, d := range targets {
		d = d.UTC().Truncate(24 * time.Hour)
		for off := -lag; off <= lead; off++ {
			seen[d.AddDate(0, 0, off)] = struct{}{}
		}
	}

	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// LagDates returns the input history window d-lag..d, oldest first.
func LagDates(target time.Time, lag int) []time.Time {
	out := make([]time.Time, 0, lag+1)
	for off := -lag; off <= 0; off++ {
		out = append(out, target.AddDate(0, 0, off))
	}
	return out
}

// LeadDates returns the forecast window d+1..d+lead.
func LeadDates(target time.Time, lead int) []time.Time {
	out := make([]time.Time, 0, lead)
	for off := 1; off <= lead; off++ {
		out = append(out, target.AddDate(0, 0, off))
	}
	return out
}
