package timeutil_test

import (
	"testing"
	"time"

	"github.com/advisorconnect/advisorconnect/internal/timeutil"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock  string
		hour   int
		minute int
	}{
		{"12:00 AM", 0, 0},
		{"12:00 PM", 12, 0},
		{"1:00 PM", 13, 0},
		{"9:00 AM", 9, 0},
		{"11:59 PM", 23, 59},
		{"12:30 AM", 0, 30},
		{"2:15 pm", 14, 15},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			hour, minute, err := timeutil.ParseClock(tt.clock)
			if err != nil {
				t.Fatalf("ParseClock(%q): %v", tt.clock, err)
			}
			if hour != tt.hour || minute != tt.minute {
				t.Errorf("ParseClock(%q) = %d:%02d, want %d:%02d", tt.clock, hour, minute, tt.hour, tt.minute)
			}
		})
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"2:00",
		"2:00 XM",
		"14:00 PM",
		"0:30 AM",
		"2:60 PM",
		"noon",
		"2 PM",
	}

	for _, clock := range bad {
		if _, _, err := timeutil.ParseClock(clock); err == nil {
			t.Errorf("ParseClock(%q) accepted a malformed clock string", clock)
		}
	}
}

func TestMeetingStartAndEnd(t *testing.T) {
	date := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	start, err := timeutil.MeetingStart(date, "2:00 PM")
	if err != nil {
		t.Fatalf("MeetingStart: %v", err)
	}
	if start.Hour() != 14 || start.Minute() != 0 {
		t.Errorf("start = %v, want 14:00", start)
	}
	if start.Year() != 2025 || start.Month() != time.March || start.Day() != 10 {
		t.Errorf("start date drifted: %v", start)
	}

	end := timeutil.MeetingEnd(start, 45)
	if got := end.Sub(start); got != 45*time.Minute {
		t.Errorf("end - start = %v, want 45m", got)
	}
}
