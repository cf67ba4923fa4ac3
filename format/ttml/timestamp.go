package ttml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ugparu/remux/utils"
)

func badTime(s, reason string) error {
	return &utils.UnsupportedFormatError{Format: "ttml time expression", Reason: fmt.Sprintf("%q: %s", s, reason)}
}

// ParseTime decodes a TTML time expression: a clock time (hh:mm:ss with an
// optional fraction), or an offset time with an h, m, s or ms metric. A bare
// number is seconds and an empty expression is zero. Wall clock values are
// not supported.
func ParseTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, nil
	case strings.HasPrefix(s, "wallclock("):
		return 0, badTime(s, "wallclock is not supported")
	case strings.Contains(s, ":"):
		return clockTime(s)
	}

	unit := time.Second
	for _, m := range []struct {
		suffix string
		unit   time.Duration
	}{{"ms", time.Millisecond}, {"h", time.Hour}, {"m", time.Minute}, {"s", time.Second}} {
		if strings.HasSuffix(s, m.suffix) {
			s, unit = strings.TrimSuffix(s, m.suffix), m.unit
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, badTime(s, "not an offset time")
	}
	return round(v * float64(unit)), nil
}

// clockTime ignores the frames and sub-frames parts.
func clockTime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return 0, badTime(s, "clock time needs hours, minutes and seconds")
	}
	h, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, badTime(s, "bad hours")
	}
	m, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return 0, badTime(s, "bad minutes")
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 || math.IsInf(sec, 0) || math.IsNaN(sec) {
		return 0, badTime(s, "bad seconds")
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + round(sec*float64(time.Second)), nil
}

// round drops anything below a millisecond, the SRT precision.
func round(ns float64) time.Duration {
	return time.Duration(math.Round(ns/float64(time.Millisecond))) * time.Millisecond
}

// FormatTime renders d as an SRT timestamp, HH:MM:SS,mmm.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
