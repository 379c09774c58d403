/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package shutdown coordinates graceful termination of the chaos and
// workload loops on SIGINT/SIGTERM.
//
// Both loops run a single long operation at a time (a chaos iteration, a
// dispatcher Action). Tracker reports whether that operation is still
// outstanding; Coordinator blocks until it finishes or a drain deadline
// passes, at which point it invokes whatever force-completion callbacks
// were registered (force-repair an outstanding fault, in the chaos case).
package shutdown

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Tracker reports how many units of work are currently outstanding.
type Tracker interface {
	InFlightCount() int
}

// ForceFunc forcibly completes one outstanding unit of work past the drain
// deadline (e.g. repairing a fault instead of leaving it on the cluster).
type ForceFunc func()

// Coordinator coordinates graceful shutdown of an in-progress loop.
type Coordinator struct {
	tracker      Tracker
	log          logr.Logger
	drainTimeout time.Duration

	mu     sync.Mutex
	forces map[string]ForceFunc
}

// NewCoordinator creates a shutdown coordinator.
// drainTimeout is the maximum time to wait for the in-flight operation to
// finish on its own before forcing completion.
func NewCoordinator(tracker Tracker, drainTimeout time.Duration, log logr.Logger) *Coordinator {
	return &Coordinator{
		tracker:      tracker,
		log:          log.WithName("shutdown"),
		drainTimeout: drainTimeout,
		forces:       make(map[string]ForceFunc),
	}
}

// RegisterRun tracks a force-completion callback for a named unit of work so
// it can be forced to finish on a hard deadline.
func (c *Coordinator) RegisterRun(key string, force ForceFunc) {
	c.mu.Lock()
	c.forces[key] = force
	c.mu.Unlock()
}

// DeregisterRun removes a completed unit of work from tracking.
func (c *Coordinator) DeregisterRun(key string) {
	c.mu.Lock()
	delete(c.forces, key)
	c.mu.Unlock()
}

// ActiveRuns returns the number of registered force-completion callbacks.
func (c *Coordinator) ActiveRuns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.forces)
}

// WaitForDrain blocks until the tracker reports no in-flight work or the
// drain deadline is reached. If the deadline expires, it invokes every
// registered force-completion callback.
//
// Returns the number of units that were forcibly completed.
func (c *Coordinator) WaitForDrain() int {
	inflight := c.tracker.InFlightCount()
	if inflight == 0 {
		c.log.Info("no in-flight work, clean shutdown")
		return 0
	}

	c.log.Info("waiting for in-flight work to finish",
		"inflight", inflight,
		"timeout", c.drainTimeout,
	)

	deadline := time.After(c.drainTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			remaining := c.tracker.InFlightCount()
			if remaining > 0 {
				c.log.Info("drain timeout reached, forcing completion",
					"remaining", remaining,
				)
				c.forceAll()
				return remaining
			}
			return 0

		case <-ticker.C:
			if c.tracker.InFlightCount() == 0 {
				c.log.Info("in-flight work finished, clean shutdown")
				return 0
			}
		}
	}
}

// forceAll invokes every registered force-completion callback.
func (c *Coordinator) forceAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, force := range c.forces {
		c.log.Info("forcing completion", "key", key)
		force()
	}
	c.forces = make(map[string]ForceFunc)
}
