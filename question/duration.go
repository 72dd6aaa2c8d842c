package question

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDurationPart = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(weeks?|w|days?|d|hours?|hrs?|hr|h|minutes?|mins?|m|seconds?|secs?|s)\b`)
	reDurationGlue = regexp.MustCompile(`(?i)^(?:\s|,|and)*$`)
	reClock        = regexp.MustCompile(`^(\d+):([0-5]\d)(?::([0-5]\d))?$`)
)

// ErrDurationTooLong is returned for durations past what time.Duration holds.
var ErrDurationTooLong = errors.New("duration is too long")

const maxDuration = time.Duration(math.MaxInt64)

var durationUnits = map[byte]time.Duration{
	'w': 7 * 24 * time.Hour,
	'd': 24 * time.Hour,
	'h': time.Hour,
	'm': time.Minute,
	's': time.Second,
}

// ParseDuration reads durations the way people type them: "2 hours and 15
// minutes", "1d 12h", "90 min", "1:30" or Go syntax such as "1h30m".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%q is negative", s)
		}
		return d, nil
	}
	if m := reClock.FindStringSubmatch(s); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil || h > int(maxDuration/time.Hour)-1 {
			return 0, fmt.Errorf("%q: %w", s, ErrDurationTooLong)
		}
		mins, _ := strconv.Atoi(m[2])
		var secs int
		if m[3] != "" {
			secs, _ = strconv.Atoi(m[3])
		}
		return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, nil
	}

	matches := reDurationPart.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return 0, fmt.Errorf("%q is not a duration", s)
	}
	var (
		total time.Duration
		last  int
	)
	for _, m := range matches {
		if !reDurationGlue.MatchString(s[last:m[0]]) {
			return 0, fmt.Errorf("%q is not a duration", s)
		}
		n, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a duration", s)
		}
		unit := durationUnits[strings.ToLower(s[m[4]:m[5]])[0]]
		part := n * float64(unit)
		if part >= float64(maxDuration) || total > maxDuration-time.Duration(part) {
			return 0, fmt.Errorf("%q: %w", s, ErrDurationTooLong)
		}
		total += time.Duration(part)
		last = m[1]
	}
	if !reDurationGlue.MatchString(s[last:]) {
		return 0, fmt.Errorf("%q is not a duration", s)
	}
	return total, nil
}

// FormatDuration renders d as "2 hours and 15 minutes".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}
	d = d.Round(time.Second)
	units := []struct {
		name string
		size time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}
	var parts []string
	for _, u := range units {
		n := d / u.size
		if n == 0 {
			continue
		}
		d -= n * u.size
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
