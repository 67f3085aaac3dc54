package rte

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// FormatDuration renders d as a SCORM time interval, PT<h>H<m>M<s>S, with
// whole seconds. Negative durations render as PT0H0M0S.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("PT%dH%dM%dS", secs/3600, (secs%3600)/60, secs%60)
}

var intervalParts = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration parses a SCORM time interval. Years count as 365 days and
// months as 30 days.
func ParseDuration(s string) (time.Duration, error) {
	m := intervalParts.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid time interval %q", s)
	}
	units := []time.Duration{365 * 24 * time.Hour, 30 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time interval %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	if m[6] != "" {
		f, err := strconv.ParseFloat(m[6], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time interval %q: %w", s, err)
		}
		d += time.Duration(f * float64(time.Second))
	}
	return d, nil
}
