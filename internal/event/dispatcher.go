/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package event

import (
	"container/heap"
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/event")

// actionQueue is a container/heap implementation ordered by Action.When().
// Actions scheduled for the same instant have no defined relative order.
type actionQueue []Action

func (q actionQueue) Len() int            { return len(q) }
func (q actionQueue) Less(i, j int) bool  { return q[i].When().Before(q[j].When()) }
func (q actionQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *actionQueue) Push(x interface{}) { *q = append(*q, x.(Action)) }
func (q *actionQueue) Pop() interface{} {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return a
}

// Dispatcher runs Actions at or after their scheduled deadline, single
// threaded, processing each one to completion before considering the next.
// If the queue has many Actions scheduled around the same time, later ones
// may run later than their deadline due to the processing time of earlier
// ones; Actions will still run in deadline order.
type Dispatcher struct {
	log   logr.Logger
	queue actionQueue
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log logr.Logger) *Dispatcher {
	return &Dispatcher{
		log:   log.WithName("dispatcher"),
		queue: actionQueue{},
	}
}

// Add schedules one or more Actions.
func (d *Dispatcher) Add(actions ...Action) {
	for _, a := range actions {
		heap.Push(&d.queue, a)
	}
}

// Pending returns the number of Actions currently queued.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Run processes Actions until the queue is empty, ctx is cancelled, or an
// Action's Execute returns an error. An error aborts the run immediately
// and propagates to the caller; whatever remains in the queue is lost.
// Actions returned by Execute are fed back into the queue, so a Dispatcher
// seeded with at least one self-rescheduling Action will run indefinitely
// until ctx is cancelled or an Action fails.
func (d *Dispatcher) Run(ctx context.Context) error {
	for d.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		action := heap.Pop(&d.queue).(Action)
		if err := d.waitUntil(ctx, action.When()); err != nil {
			return err
		}

		follow, err := d.execute(ctx, action)
		if err != nil {
			d.log.Error(err, "action failed, aborting run")
			d.queue = actionQueue{}
			return err
		}
		d.Add(follow...)
	}
	return nil
}

func (d *Dispatcher) waitUntil(ctx context.Context, when time.Time) error {
	delta := time.Until(when)
	if delta <= 0 {
		return nil
	}
	timer := time.NewTimer(delta)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) execute(ctx context.Context, action Action) ([]Action, error) {
	ctx, span := tracer.Start(ctx, "dispatcher.execute",
		trace.WithAttributes(attribute.String("action.type", actionTypeName(action))))
	defer span.End()
	return action.Execute(ctx)
}

func actionTypeName(a Action) string {
	if named, ok := a.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
