/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package event

import (
	"context"
	"time"
)

// ActionFunc runs a single action with no follow-up scheduling.
type ActionFunc func(ctx context.Context) error

// OneShot wraps a plain function as an Action that fires once at a given
// time and schedules nothing further.
type OneShot struct {
	when time.Time
	name string
	fn   ActionFunc
}

// NewOneShot creates an Action that calls fn at when.
func NewOneShot(when time.Time, name string, fn ActionFunc) *OneShot {
	return &OneShot{when: when, name: name, fn: fn}
}

func (o *OneShot) When() time.Time { return o.when }
func (o *OneShot) Name() string    { return o.name }

func (o *OneShot) Execute(ctx context.Context) ([]Action, error) {
	return nil, o.fn(ctx)
}

// PeriodicFunc runs once per tick. Returning false stops further
// rescheduling; returning an error stops rescheduling too, and aborts the
// dispatcher's run since the error propagates out of Execute.
type PeriodicFunc func(ctx context.Context) (bool, error)

// Periodic is an Action that reschedules itself at a fixed interval for as
// long as its function keeps returning true.
type Periodic struct {
	when     time.Time
	name     string
	interval time.Duration
	fn       PeriodicFunc
}

// NewPeriodic creates an Action that fires every interval, starting at
// first (the time of the first execution).
func NewPeriodic(first time.Time, interval time.Duration, name string, fn PeriodicFunc) *Periodic {
	return &Periodic{when: first, name: name, interval: interval, fn: fn}
}

func (p *Periodic) When() time.Time { return p.when }
func (p *Periodic) Name() string    { return p.name }

func (p *Periodic) Execute(ctx context.Context) ([]Action, error) {
	again, err := p.fn(ctx)
	if err != nil {
		return nil, err
	}
	if !again {
		return nil, nil
	}
	return []Action{NewPeriodic(p.when.Add(p.interval), p.interval, p.name, p.fn)}, nil
}
