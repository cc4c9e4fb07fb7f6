package lock

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is a Baseline maturity status.
type Status string

const (
	StatusWidely  Status = "widely"
	StatusNewly   Status = "newly"
	StatusLimited Status = "limited"
	// StatusUnknown is never stored. It is the effective status of a token
	// that resolves to nothing or to a record without a status.
	StatusUnknown Status = "unknown"
)

// Statuses lists every effective status in report order.
var Statuses = []Status{StatusWidely, StatusNewly, StatusLimited, StatusUnknown}

// Valid reports whether s may appear in a snapshot.
func (s Status) Valid() bool {
	switch s {
	case StatusWidely, StatusNewly, StatusLimited:
		return true
	}
	return false
}

// ParseStatus accepts a stored status, ignoring case and surrounding space.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid baseline status %q (want widely, newly or limited)", s)
	}
	return st, nil
}

const dateLayout = "2006-01-02"

// onOrBefore marks a date the dataset only knows an upper bound for.
const onOrBefore = "≤"

// Date is a calendar date serialized as YYYY-MM-DD. Dates the upstream
// dataset reports as ranges ("≤2020-01-15") keep the marker in OnOrBefore.
type Date struct {
	Time       time.Time
	OnOrBefore bool
}

// ParseDate parses YYYY-MM-DD with an optional leading "≤". A timestamp
// suffix after the date is ignored.
func ParseDate(s string) (Date, error) {
	var d Date
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, onOrBefore); ok {
		d.OnOrBefore = true
		s = rest
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return d, nil
}

func (d Date) String() string {
	if d.OnOrBefore {
		return onOrBefore + d.Time.Format(dateLayout)
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
