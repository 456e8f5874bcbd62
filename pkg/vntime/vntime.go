// Package vntime interprets the aggregator's offset-less timestamps as Vietnam civil time.
package vntime

import (
	"strings"
	"time"
)

// Layout is the aggregator's primary timestamp format, e.g. "2025-11-25T23:22:00".
const Layout = "2006-01-02T15:04:05"

const DateLayout = "2006-01-02"

// Location is Asia/Ho_Chi_Minh. Vietnam has no DST, so the fixed +07:00 zone is an exact substitute
// when the host has no tzdata.
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// Layouts tried after Layout. The ones without an offset are read in Location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

// Parse converts a feed timestamp into an absolute instant. The bool is false for empty or
// unparseable input; callers treat that as "timestamp unknown".
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.ParseInLocation(Layout, s, Location); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t, true
		}
	}
	// an explicit offset wins over the Vietnam assumption
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date formats t as the Vietnam calendar date used in feed queries.
func Date(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// Today is Date(time.Now()).
func Today() string {
	return Date(time.Now())
}
