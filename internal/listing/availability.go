package listing

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Availability is either "available now" or a concrete future date. The
// fail-open coercion of the raw field happens once, in ParseAvailability:
// everything that is not a parseable strictly-future date means now.
type Availability struct {
	now  bool
	date time.Time
}

func AvailableNow() Availability {
	return Availability{now: true}
}

func AvailableOn(date time.Time) Availability {
	return Availability{date: dateOnly(date)}
}

// ParseAvailability interprets a raw available-date value against today.
// Absent, the literal "now", unparseable strings and dates on or before today
// all collapse to "available now"; only a valid future date survives as one.
func ParseAvailability(raw string, today time.Time) Availability {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "now" {
		return AvailableNow()
	}

	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return AvailableNow()
	}

	if !dateOnly(parsed).After(dateOnly(today)) {
		return AvailableNow()
	}
	return AvailableOn(parsed)
}

func (a Availability) IsNow() bool {
	return a.now
}

func (a Availability) Date() (time.Time, bool) {
	if a.now {
		return time.Time{}, false
	}
	return a.date, true
}

// Before orders availabilities for display: now before any future date,
// future dates ascending, two now values equal (callers rely on a stable
// sort preserving input order among them).
func (a Availability) Before(other Availability) bool {
	switch {
	case a.now && other.now:
		return false
	case a.now:
		return true
	case other.now:
		return false
	default:
		return a.date.Before(other.date)
	}
}

func (a Availability) String() string {
	if a.now {
		return "now"
	}
	return a.date.Format(dateLayout)
}

func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the wire forms MarshalJSON produces. It does not
// clamp past dates; that happens against today's date in ParseAvailability.
func (a *Availability) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "now" {
		*a = AvailableNow()
		return nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return err
	}
	*a = AvailableOn(parsed)
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
