// Package timeutil is the single place where 12-hour clock strings like
// "2:00 PM" are parsed and turned into timestamps. Every subsystem that
// does duration math or chronological comparison must go through it so
// the normalization rule cannot drift between callers.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a 12-hour clock string ("9:00 AM", "12:30 PM") into
// a 24-hour hour and minute. The rule: an hour token of 12 is treated as
// 0 before the PM offset is applied, so "12:00 AM" is 00:00 and
// "12:00 PM" is 12:00.
func ParseClock(clock string) (hour, minute int, err error) {
	fields := strings.Fields(strings.TrimSpace(clock))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed clock string %q", clock)
	}

	suffix := strings.ToUpper(fields[1])
	if suffix != "AM" && suffix != "PM" {
		return 0, 0, fmt.Errorf("clock string %q must end in AM or PM", clock)
	}

	hm := strings.SplitN(fields[0], ":", 2)
	if len(hm) != 2 {
		return 0, 0, fmt.Errorf("malformed clock string %q", clock)
	}

	h, err := strconv.Atoi(hm[0])
	if err != nil || h < 1 || h > 12 {
		return 0, 0, fmt.Errorf("clock string %q has an invalid hour", clock)
	}
	m, err := strconv.Atoi(hm[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock string %q has an invalid minute", clock)
	}

	if h == 12 {
		h = 0
	}
	if suffix == "PM" {
		h += 12
	}
	return h, m, nil
}

// MeetingStart combines a calendar day with a 12-hour clock string into
// a concrete timestamp in the day's location.
func MeetingStart(date time.Time, clock string) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// MeetingEnd returns the end timestamp for a meeting of the given
// duration in minutes.
func MeetingEnd(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}
