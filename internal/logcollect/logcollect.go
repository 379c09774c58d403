/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package logcollect defines the seam for diagnostic log gathering on a
// fatal error. It ships with a registry and no concrete collectors: the
// actual "oc adm must-gather"-style shell-out is an excluded external
// collaborator, but the interface exists so an operator can register one.
package logcollect

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
)

// Collector gathers some class of diagnostic log into dir upon a fatal
// error.
type Collector interface {
	Gather(ctx context.Context, dir string) error
	String() string
}

var (
	mu         sync.Mutex
	collectors []Collector
)

// Register adds a collector to the set GatherAll invokes.
func Register(c Collector) {
	mu.Lock()
	defer mu.Unlock()
	collectors = append(collectors, c)
}

// GatherAll runs every registered collector against dir, logging each
// collector's outcome rather than aborting on its first failure: one
// collector's failure shouldn't prevent another from capturing what it
// can.
func GatherAll(ctx context.Context, dir string, log logr.Logger) {
	mu.Lock()
	snapshot := make([]Collector, len(collectors))
	copy(snapshot, collectors)
	mu.Unlock()

	for _, c := range snapshot {
		log.Info("gathering logs", "collector", c.String())
		if err := c.Gather(ctx, dir); err != nil {
			log.Error(err, "log collector failed", "collector", c.String())
			continue
		}
		log.Info("log collector finished", "collector", c.String())
	}
}
