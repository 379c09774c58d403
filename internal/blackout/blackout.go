/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package blackout gates new fault draws during configured quiet-hours
// windows (e.g. "don't start a new fault during the nightly backup job").
// A window is a cron expression naming its start plus a duration; the
// chaos loop asks whether "now" falls inside the most recent occurrence of
// that window before deciding whether to draw a new failure.
package blackout

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const maxLookbackOccurrences = 10000

// Window is a recurring quiet-hours period during which the chaos loop
// should not start any new failure. Failures already in flight are
// unaffected — a window only gates the next draw, not an in-progress
// mitigation or repair.
type Window struct {
	expr     string
	duration time.Duration
	loc      *time.Location
	sched    cron.Schedule
}

// NewWindow parses a blackout window from a cron expression naming its
// start and a duration describing how long it lasts. An empty expr
// disables the window entirely — Active always returns false.
func NewWindow(expr string, duration time.Duration, tz string) (*Window, error) {
	if expr == "" {
		return &Window{}, nil
	}

	loc, err := loadTimezone(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid blackout cron expression %q: %w", expr, err)
	}

	if duration <= 0 {
		return nil, fmt.Errorf("blackout duration must be positive, got %v", duration)
	}

	return &Window{expr: expr, duration: duration, loc: loc, sched: sched}, nil
}

// Active reports whether now falls inside the most recent occurrence of
// the window. A disabled Window (zero value, or built from an empty expr)
// is never active.
func (w *Window) Active(now time.Time) bool {
	if w == nil || w.sched == nil {
		return false
	}

	t := now.In(w.loc)
	cursor := t.Add(-w.duration)

	var last time.Time
	for i := 0; i < maxLookbackOccurrences; i++ {
		next := w.sched.Next(cursor)
		if next.After(t) {
			break
		}
		last = next
		cursor = next
	}

	if last.IsZero() {
		return false
	}
	return t.Before(last.Add(w.duration))
}

func loadTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}
