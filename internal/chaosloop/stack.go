/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package chaosloop

import (
	"sync"

	"github.com/ocsmonkey/ocsmonkey/internal/failure"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
)

// FaultStack is a thread-safe LIFO of invoked-but-not-yet-repaired faults.
// The loop itself pushes and drains it single-threadedly; the mutex exists
// only so a signal handler on another goroutine can inspect and force-repair
// it during shutdown (see shutdown.Coordinator).
type FaultStack struct {
	mu    sync.Mutex
	items []failure.Failure
}

// Push adds a fault to the top of the stack.
func (s *FaultStack) Push(f failure.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, f)
	metrics.FaultsOutstanding.Set(float64(len(s.items)))
}

// DrainReversed removes every fault from the stack and returns them
// newest-first, ready for sequential repair in LIFO order.
func (s *FaultStack) DrainReversed() []failure.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	reversed := make([]failure.Failure, len(s.items))
	for i, f := range s.items {
		reversed[len(s.items)-1-i] = f
	}
	s.items = nil
	metrics.FaultsOutstanding.Set(0)
	return reversed
}

// InFlightCount implements shutdown.Tracker.
func (s *FaultStack) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
