/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package watchdebounce suppresses duplicate reactions to the same pod
// watch event. A watch reconnect re-delivers the current state of every
// matching pod, so the same start/stop transition can otherwise be acted
// on twice.
package watchdebounce

import (
	"sync"
	"time"
)

// Debouncer drops repeated events for the same key within a time window.
// Within the window, only the first call to ShouldFire for a given key
// returns true; later calls for that key are dropped until the window
// elapses.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

// NewDebouncer creates a debouncer with the given window.
// Default window: 30 seconds.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Debouncer{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// ShouldFire returns true if the event for key should be acted on.
// key is typically "namespace/name/generation/kind" so that a genuinely new
// generation of the same pod is never suppressed by a stale entry.
func (d *Debouncer) ShouldFire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	last, exists := d.last[key]
	if exists && now.Sub(last) < d.window {
		return false
	}

	d.last[key] = now
	return true
}

// Reset clears all debounce state.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = make(map[string]time.Time)
}

// Clean removes entries older than 2x the window to prevent unbounded growth.
// Callers should invoke this periodically (e.g. alongside a steady-state
// check) rather than on every event.
func (d *Debouncer) Clean() {
	d.mu.Lock()
	defer d.mu.Unlock()

	threshold := time.Now().Add(-2 * d.window)
	for key, last := range d.last {
		if last.Before(threshold) {
			delete(d.last, key)
		}
	}
}
