// Package duration converts between human duration phrases and the walltime
// formats each scheduler expects. Minutes are the only unit that survives a
// round trip; seconds always render as zero.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Duration is a non-negative whole number of minutes.
type Duration int

const (
	Minute Duration = 1
	Hour            = 60 * Minute
	Day             = 24 * Hour
)

// ErrInvalid is returned when text matches none of the accepted grammars.
var ErrInvalid = errors.New("invalid duration")

var (
	legacyPattern    = regexp.MustCompile(`^(\d+):(\d+):(\d+)$`)
	compositePattern = regexp.MustCompile(`(\d+)\s*(d|h|m)`)
	barePattern      = regexp.MustCompile(`^\d+$`)
)

// Parse reads a duration phrase into minutes.
//
// Accepted forms:
//   - composite tokens in any order: "30m", "8h", "3d 12h", "1d 6h 30m"
//   - legacy "H:M:S" (seconds are ignored)
//   - a bare integer, read as hours
func Parse(text string) (Duration, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, ErrInvalid
	}

	if m := legacyPattern.FindStringSubmatch(s); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		mn, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		hours, ok := scale(h, Hour)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		total, ok := sum(hours, Duration(mn))
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		return total, nil
	}

	if tokens := compositePattern.FindAllStringSubmatch(s, -1); len(tokens) > 0 {
		var total Duration
		for _, tok := range tokens {
			v, err := strconv.Atoi(tok[1])
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
			}
			unit := Minute
			switch tok[2] {
			case "d":
				unit = Day
			case "h":
				unit = Hour
			}
			term, ok := scale(v, unit)
			if ok {
				total, ok = sum(total, term)
			}
			if !ok {
				return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
			}
		}
		return total, nil
	}

	if barePattern.MatchString(s) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		hours, ok := scale(v, Hour)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
		}
		return hours, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalid, text)
}

// scale multiplies v by unit, failing instead of overflowing.
func scale(v int, unit Duration) (Duration, bool) {
	if v < 0 || v > math.MaxInt/int(unit) {
		return 0, false
	}
	return Duration(v) * unit, true
}

func sum(a, b Duration) (Duration, bool) {
	if b < 0 || a > Duration(math.MaxInt)-b {
		return 0, false
	}
	return a + b, true
}

// Minutes returns the total minute count.
func (d Duration) Minutes() int {
	return int(d)
}

// Slurm renders the SLURM --time format: HH:MM:00, or D-HH:MM:00 from 24h up.
func (d Duration) Slurm() string {
	totalHours := int(d) / 60
	m := int(d) % 60
	if totalHours >= 24 {
		return fmt.Sprintf("%d-%02d:%02d:00", totalHours/24, totalHours%24, m)
	}
	return fmt.Sprintf("%02d:%02d:00", totalHours, m)
}

// OAR renders the OAR walltime format H:M:0.
func (d Duration) OAR() string {
	return fmt.Sprintf("%d:%d:0", int(d)/60, int(d)%60)
}

// Human renders the largest-to-smallest non-zero units, e.g. "2d 5h 30m".
func (d Duration) Human() string {
	if d <= 0 {
		return "0m"
	}
	days := d / Day
	hours := (d % Day) / Hour
	mins := d % Hour

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

// FormatElapsed renders a second count as a human duration, or "N/A" when negative.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		return "N/A"
	}
	return Duration(seconds / 60).Human()
}
