/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package event implements a single-threaded discrete-event scheduler.
//
// An Action is something that should run at a specific wall-clock deadline.
// Running it may produce more Actions (e.g. a workload's next lifecycle
// tick, or the next occurrence of a periodic check) which get fed back into
// the same Dispatcher. The dispatcher drains its queue until no Actions
// remain scheduled.
package event

import (
	"context"
	"time"
)

// Action is work that runs once its deadline has passed.
type Action interface {
	// When returns the wall-clock time at which this Action should run.
	When() time.Time

	// Execute runs the action and returns zero or more follow-up Actions
	// to be scheduled. ctx is cancelled when the dispatcher is shutting
	// down; long-running Actions should respect it.
	Execute(ctx context.Context) ([]Action, error)
}
