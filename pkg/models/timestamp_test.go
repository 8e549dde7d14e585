package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2020-01-01", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2019-06-01T10:30:00Z", time.Date(2019, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-12-04T17:30:00.123456", time.Date(2024, 12, 4, 17, 30, 0, 123456000, time.UTC)},
		{"2024-12-04 17:30:00", time.Date(2024, 12, 4, 17, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if err != nil {
				t.Fatalf("ParseTimestamp() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp(yesterday) should fail")
	}
}

func TestTimestamp_JSON(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2020-01-01"`), &ts); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ts.DateString() != "2020-01-01" {
		t.Errorf("DateString() = %q", ts.DateString())
	}

	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2020-01-01T00:00:00Z"` {
		t.Errorf("Marshal() = %s", data)
	}

	var zero Timestamp
	if err := json.Unmarshal([]byte(`""`), &zero); err != nil || !zero.IsZero() {
		t.Errorf("empty string should decode to zero, got %v (%v)", zero, err)
	}
	data, _ = json.Marshal(zero)
	if string(data) != `""` {
		t.Errorf("zero timestamp should marshal to empty string, got %s", data)
	}
}
