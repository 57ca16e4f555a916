package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lifetime is a token lifetime written as days:hours:minutes:seconds,
// e.g. "0:12:00:00". A plain Go duration such as "90m" is accepted too.
type Lifetime time.Duration

// Duration returns the lifetime as a time.Duration.
func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}

// String renders the lifetime in d:h:m:s form.
func (l Lifetime) String() string {
	d := time.Duration(l)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	return fmt.Sprintf("%d:%02d:%02d:%02d", days, hours, minutes, d/time.Second)
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML and env decoding.
func (l *Lifetime) UnmarshalText(text []byte) error {
	d, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = Lifetime(d)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLifetime parses "d:h:m:s" or a Go duration string.
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime %q: %w", s, err)
		}
		return d, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid lifetime %q: want days:hours:minutes:seconds", s)
	}
	units := [4]time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid lifetime %q: field %d is not a non-negative integer", s, i+1)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}
