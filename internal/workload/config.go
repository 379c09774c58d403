/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package workload

import "time"

const (
	// initialHealthInterval (H0) is used both as the first health check
	// delay after a deployment becomes active, and as the WORKAROUND_MIN_RUNTIME
	// floor for idle/active duration draws.
	initialHealthInterval = 90 * time.Second
	// runningHealthInterval (H) is the health check delay used once a
	// deployment has already passed its first check.
	runningHealthInterval = 10 * time.Second
)

// LifecycleConfig parameterizes the Creator/Lifecycle state machine.
type LifecycleConfig struct {
	Interarrival time.Duration
	Lifetime     time.Duration
	ActiveTime   time.Duration
	IdleTime     time.Duration

	// WorkaroundMinRuntime, when set, clamps idle/active duration draws
	// to initialHealthInterval so a newly started pod isn't flipped
	// again before it has had a chance to come ready.
	WorkaroundMinRuntime bool
}
