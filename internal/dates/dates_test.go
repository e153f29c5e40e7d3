package dates

import (
	"testing"
	"time"
)

var clock = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func TestSplitDue(t *testing.T) {
	tests := []struct {
		text     string
		wantBody string
		wantDate string
	}{
		{"fix the thing - due 1 June", "fix the thing", "1 June"},
		{"fix the thing due next tuesday", "fix the thing", "next tuesday"},
		{"no date here", "no date here", ""},
		{"review overdue items", "review overdue items", ""},
		{"due 2026-09-01", "", "2026-09-01"},
	}
	for _, tt := range tests {
		body, date := SplitDue(tt.text)
		if body != tt.wantBody || date != tt.wantDate {
			t.Errorf("SplitDue(%q) = %q, %q; want %q, %q", tt.text, body, date, tt.wantBody, tt.wantDate)
		}
	}
}

func TestParseAbsolute(t *testing.T) {
	d, err := Parse("2026-09-01", clock)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if d.String() != "2026-09-01" || d.Adjusted {
		t.Errorf("Parse = %v (adjusted %v), want 2026-09-01 unadjusted", d, d.Adjusted)
	}
}

func TestParseDaylessFuture(t *testing.T) {
	// December 1 is still ahead of the August clock: same year, no
	// adjustment.
	d, err := Parse("1 December", clock)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if d.String() != "2026-12-01" || d.Adjusted {
		t.Errorf("Parse = %v (adjusted %v), want 2026-12-01 unadjusted", d, d.Adjusted)
	}
}

func TestParsePastDateAdvancesYear(t *testing.T) {
	// June 1 has already passed; the user means next June.
	d, err := Parse("1 June", clock)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if d.String() != "2027-06-01" {
		t.Errorf("Parse = %v, want 2027-06-01", d)
	}
	if !d.Adjusted {
		t.Error("Adjusted = false, want true for past date")
	}
}

func TestParseRelative(t *testing.T) {
	d, err := Parse("tomorrow", clock)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if d.String() != "2026-08-30" || d.Adjusted {
		t.Errorf("Parse(tomorrow) = %v (adjusted %v), want 2026-08-30", d, d.Adjusted)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("the heat death of the universe", clock); err == nil {
		t.Error("Parse on garbage should fail")
	}
}
