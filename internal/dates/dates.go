// Package dates normalizes the free-form date tokens found in résumés into
// comparable points in time.
package dates

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind tells how a token was resolved.
type Kind int

const (
	// Absent means the token was empty or could not be parsed.
	Absent Kind = iota
	// Ongoing means the token was one of the "still going" literals.
	Ongoing
	// Known means the token resolved to a calendar date.
	Known
)

const isoLayout = "2006-01-02"

// Infinity stands in for the end of an ongoing or open interval.
var Infinity = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

var ongoingLiterals = map[string]struct{}{
	"present": {},
	"ongoing": {},
	"current": {},
	"now":     {},
}

var numericLayouts = []string{isoLayout, "2006-01", "2006"}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Date is a normalized date token.
type Date struct {
	Kind Kind
	Time time.Time
}

// On returns a known date at midnight UTC.
func On(year int, month time.Month, day int) Date {
	return Date{Kind: Known, Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsKnown reports whether d resolved to a calendar date.
func (d Date) IsKnown() bool { return d.Kind == Known }

// Upper returns d as the upper end of an interval: absent and ongoing ends
// are unbounded.
func (d Date) Upper() time.Time {
	if d.Kind != Known {
		return Infinity
	}
	return d.Time
}

func (d Date) String() string {
	switch d.Kind {
	case Known:
		return d.Time.Format(isoLayout)
	case Ongoing:
		return "present"
	default:
		return ""
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Kind == Absent {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = Date{}
		return nil
	}
	*d = Parse(*raw)
	return nil
}

// IsOngoing reports whether token is one of present/ongoing/current/now.
func IsOngoing(token string) bool {
	_, ok := ongoingLiterals[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// Parse normalizes token. Formats are tried in order: YYYY-MM-DD, YYYY-MM,
// YYYY, then "Mon YYYY" or "Month YYYY". Missing month or day default to 1.
// Unparseable input yields an Absent date.
func Parse(token string) Date {
	token = strings.TrimSpace(token)
	if token == "" {
		return Date{}
	}

	if IsOngoing(token) {
		return Date{Kind: Ongoing}
	}

	for _, layout := range numericLayouts {
		if len(token) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, token); err == nil {
			return Date{Kind: Known, Time: t}
		}
	}

	fields := strings.Fields(token)
	if len(fields) != 2 || len(fields[1]) != 4 {
		return Date{}
	}

	month, ok := months[strings.ToLower(fields[0])]
	if !ok {
		return Date{}
	}

	year, err := time.Parse("2006", fields[1])
	if err != nil {
		return Date{}
	}

	return On(year.Year(), month, 1)
}
