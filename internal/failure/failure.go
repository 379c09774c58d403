/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package failure defines the fault-injection framework: a FailureType is
// a stateless description of a class of faults (delete a pod matching a
// selector, cordon a node); Get produces a concrete, safe-to-invoke
// Failure instance, or reports that none currently exist.
package failure

import (
	"context"
	"time"
)

// NoSafeFailuresError is returned by FailureType.Get when no instance of
// that fault class can currently be invoked without risking an
// unrecoverable SUT.
type NoSafeFailuresError struct {
	Reason string
}

func (e *NoSafeFailuresError) Error() string {
	return "no safe failures: " + e.Reason
}

// Failure is one specific, in-flight fault: enough identity to invoke the
// damage, observe mitigation, and repair whatever residual damage it left
// behind.
type Failure interface {
	// Invoke causes the fault.
	Invoke(ctx context.Context) error

	// Mitigated reports whether the SUT has recovered from the fault.
	// timeout bounds how long Mitigated itself is willing to wait/watch
	// before giving up and returning false; zero places no bound of its
	// own, so an implementation that waits does so until ctx is cancelled.
	Mitigated(ctx context.Context, timeout time.Duration) (bool, error)

	// Repair cleans up any residual damage the fault left on the
	// infrastructure itself (as opposed to the SUT, which Mitigated
	// covers). Many faults have nothing to repair.
	Repair(ctx context.Context) error

	String() string
}

// FailureType is a stateless descriptor of a class of faults.
type FailureType interface {
	// Get produces a concrete Failure instance that is currently safe to
	// invoke, or a *NoSafeFailuresError if none exist right now.
	Get(ctx context.Context) (Failure, error)

	String() string
}
