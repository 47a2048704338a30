// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hfcache

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize renders a byte count in binary units, e.g. "4.2MiB".
func FormatSize(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
		tib = 1 << 40
	)
	switch {
	case n >= tib:
		return fmt.Sprintf("%.1fTiB", float64(n)/tib)
	case n >= gib:
		return fmt.Sprintf("%.1fGiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1fMiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1fKiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// ParseSize parses a human-readable size string (e.g. "32MiB", "1.5GB",
// "2048") to bytes. Decimal units are powers of 1000, binary units
// powers of 1024.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	var n float64
	var unit string
	if _, err := fmt.Sscanf(strings.ToUpper(s), "%f%s", &n, &unit); err != nil {
		var nn int64
		if _, e2 := fmt.Sscanf(s, "%d", &nn); e2 == nil {
			return nn, nil
		}
		return 0, fmt.Errorf("invalid size %q", s)
	}
	switch unit {
	case "B", "":
		return int64(n), nil
	case "KB":
		return int64(n * 1000), nil
	case "MB":
		return int64(n * 1000 * 1000), nil
	case "GB":
		return int64(n * 1000 * 1000 * 1000), nil
	case "TB":
		return int64(n * 1000 * 1000 * 1000 * 1000), nil
	case "KIB":
		return int64(n * 1024), nil
	case "MIB":
		return int64(n * 1024 * 1024), nil
	case "GIB":
		return int64(n * 1024 * 1024 * 1024), nil
	case "TIB":
		return int64(n * 1024 * 1024 * 1024 * 1024), nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}

// ParseAge parses an age expression into a duration. On top of the
// standard duration syntax ("36h", "90m") it accepts day and week
// suffixes ("30d", "2w") which time.ParseDuration does not.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty age")
	}
	var n float64
	switch {
	case strings.HasSuffix(s, "w"):
		if _, err := fmt.Sscanf(s, "%fw", &n); err != nil {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n * float64(7*24*time.Hour)), nil
	case strings.HasSuffix(s, "d"):
		if _, err := fmt.Sscanf(s, "%fd", &n); err != nil {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	default:
		return time.ParseDuration(s)
	}
}

// FormatTimeSince renders how long ago t was, e.g. "2 weeks ago".
func FormatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "a few seconds ago"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	case d < 14*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	case d < 60*24*time.Hour:
		return fmt.Sprintf("%d weeks ago", int(d.Hours()/(24*7)))
	case d < 2*365*24*time.Hour:
		return fmt.Sprintf("%d months ago", int(d.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%d years ago", int(d.Hours()/(24*365)))
	}
}
