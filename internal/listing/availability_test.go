package listing

import (
	"testing"
	"time"
)

var today = time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)

func TestParseAvailabilityNowLiterals(t *testing.T) {
	for _, raw := range []string{"", "now", "  now  "} {
		if a := ParseAvailability(raw, today); !a.IsNow() {
			t.Fatalf("ParseAvailability(%q) = %v, expected now", raw, a)
		}
	}
}

func TestParseAvailabilityFutureDate(t *testing.T) {
	a := ParseAvailability("2026-09-15", today)
	if a.IsNow() {
		t.Fatalf("expected future availability, got now")
	}
	date, ok := a.Date()
	if !ok || date.Format("2006-01-02") != "2026-09-15" {
		t.Fatalf("unexpected date: %v", date)
	}
}

func TestParseAvailabilityRFC3339(t *testing.T) {
	a := ParseAvailability("2026-09-15T08:00:00Z", today)
	if a.IsNow() {
		t.Fatalf("expected future availability, got now")
	}
	if a.String() != "2026-09-15" {
		t.Fatalf("unexpected string: %s", a.String())
	}
}

func TestParseAvailabilityPastAndTodayCollapseToNow(t *testing.T) {
	for _, raw := range []string{"2026-08-01", "2026-07-31", "2020-01-01"} {
		if a := ParseAvailability(raw, today); !a.IsNow() {
			t.Fatalf("ParseAvailability(%q) = %v, expected now", raw, a)
		}
	}
}

func TestParseAvailabilityGarbageCollapsesToNow(t *testing.T) {
	for _, raw := range []string{"banana", "soon", "15/09/2026", "2026-13-40", "tomorrow"} {
		if a := ParseAvailability(raw, today); !a.IsNow() {
			t.Fatalf("ParseAvailability(%q) = %v, expected now", raw, a)
		}
	}
}

func TestAvailabilityOrdering(t *testing.T) {
	now := AvailableNow()
	sep := ParseAvailability("2026-09-01", today)
	oct := ParseAvailability("2026-10-01", today)

	if !now.Before(sep) {
		t.Fatalf("now should sort before a future date")
	}
	if sep.Before(now) {
		t.Fatalf("a future date should not sort before now")
	}
	if !sep.Before(oct) {
		t.Fatalf("september should sort before october")
	}
	if now.Before(AvailableNow()) {
		t.Fatalf("two now values must compare equal for sort stability")
	}
}

func TestAvailabilityJSON(t *testing.T) {
	data, err := AvailableNow().MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"now"` {
		t.Fatalf("unexpected json: %s", data)
	}

	data, err = ParseAvailability("2026-09-15", today).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-09-15"` {
		t.Fatalf("unexpected json: %s", data)
	}
}
