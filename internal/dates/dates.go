// Package dates parses the free-form due dates users attach to action
// items ("due next Tuesday", "due 1 June", "due 2026-06-01").
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Due is a parsed due date.
type Due struct {
	Date time.Time
	// Adjusted is set when the named date was already past and the year
	// was advanced. Users writing "due 1 June" in December mean next
	// June, not last June.
	Adjusted bool
}

// String renders the date the way action bodies carry it.
func (d Due) String() string { return d.Date.Format("2006-01-02") }

var dueClause = regexp.MustCompile(`(?i)(?:^|\s)(?:-\s*)?due\s+(\S.*)$`)

// SplitDue separates a trailing "due DATE" or "- due DATE" clause from
// text. When no clause is present it returns text unchanged and an empty
// date string.
func SplitDue(text string) (body, date string) {
	m := dueClause.FindStringSubmatchIndex(text)
	if m == nil {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:m[0]]), strings.TrimSpace(text[m[2]:m[3]])
}

// Dayless layouts users actually type; the year comes from the clock.
var daylessLayouts = []string{
	"2 January",
	"January 2",
	"2 Jan",
	"Jan 2",
}

var whenParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Parse interprets text as a calendar date relative to now. Dates that
// fall before today are advanced by whole years until they do not, and
// the result is marked Adjusted.
func Parse(text string, now time.Time) (Due, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Due{}, fmt.Errorf("empty date")
	}

	if d, ok := parseDayless(text, now); ok {
		return adjustPast(d, now), nil
	}
	if t, err := dateparse.ParseAny(text); err == nil {
		return adjustPast(dateOnly(t, now.Location()), now), nil
	}
	if r, err := whenParser.Parse(text, now); err == nil && r != nil {
		return adjustPast(dateOnly(r.Time, now.Location()), now), nil
	}
	return Due{}, fmt.Errorf("cannot interpret %q as a date", text)
}

func parseDayless(text string, now time.Time) (time.Time, bool) {
	for _, layout := range daylessLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func adjustPast(date time.Time, now time.Time) Due {
	today := dateOnly(now, now.Location())
	due := Due{Date: date}
	for due.Date.Before(today) {
		due.Date = due.Date.AddDate(1, 0, 0)
		due.Adjusted = true
	}
	return due
}
