// Package scheduler runs recurring sessions in serve mode: each
// scheduled run names a config file and a schedule, and the poll loop
// fires sessions as they come due.
package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule strings take one of three shapes:
//
//	"0 2 * * *"                 standard cron expression
//	"@every 6h"                 fixed interval
//	"once:2026-09-01T02:00:00Z" a single future firing
func NextRun(schedule string, now time.Time) (*time.Time, error) {
	schedule = strings.TrimSpace(schedule)

	if after, ok := strings.CutPrefix(schedule, "@every "); ok {
		interval, err := time.ParseDuration(strings.TrimSpace(after))
		if err != nil {
			return nil, fmt.Errorf("parse interval %q: %w", after, err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("interval must be positive: %s", schedule)
		}
		next := now.Add(interval)
		return &next, nil
	}

	if at, ok := strings.CutPrefix(schedule, "once:"); ok {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(at))
		if err != nil {
			return nil, fmt.Errorf("parse once timestamp %q: %w", at, err)
		}
		if !t.After(now) {
			// Already in the past: no next firing.
			return nil, nil
		}
		return &t, nil
	}

	next, err := gronx.NextTickAfter(schedule, now, false)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", schedule, err)
	}
	return &next, nil
}

// Validate reports whether a schedule string parses.
func Validate(schedule string) error {
	_, err := NextRun(schedule, time.Now())
	return err
}
