package queue

import (
	"testing"
	"time"
)

func TestFormatTimestampOrdersLexicographically(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC)
	earlier := base.Add(500 * time.Millisecond)
	later := base.Add(520 * time.Millisecond)

	a, b := formatTimestamp(earlier), formatTimestamp(later)
	if !(a < b) {
		t.Fatalf("string order diverges from time order: %q >= %q", a, b)
	}

	whole := formatTimestamp(base)
	if !(whole < a) {
		t.Fatalf("string order diverges from time order: %q >= %q", whole, a)
	}
}

func TestFormatTimestampRoundTrips(t *testing.T) {
	for _, ts := range []time.Time{
		time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC),
		time.Date(2026, 8, 30, 12, 0, 5, 500000000, time.UTC),
		time.Date(2026, 8, 30, 12, 0, 5, 123456789, time.UTC),
	} {
		parsed, err := parseTimestamp(formatTimestamp(ts))
		if err != nil {
			t.Fatalf("parse %v: %v", ts, err)
		}
		if !parsed.Equal(ts) {
			t.Fatalf("round trip changed %v to %v", ts, parsed)
		}
	}
}
