/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package workload

import (
	"math"
	"math/rand"
	"time"
)

// randFloat64 is the draw source behind expDuration, a package-level seam
// so tests can substitute a fixed sequence and assert exact durations
// instead of just checking properties.
var randFloat64 = rand.Float64

// expDuration draws from an exponential distribution with the given mean:
// -mean * ln(U), U ~ Uniform(0,1).
func expDuration(mean time.Duration) time.Duration {
	u := randFloat64()
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	return time.Duration(-mean.Seconds() * math.Log(u) * float64(time.Second))
}

// clampMinRuntime enforces the WORKAROUND_MIN_RUNTIME floor on idle/active
// duration draws, so a freshly created pod isn't immediately flipped again
// while it's still starting up.
func clampMinRuntime(d time.Duration, enabled bool) time.Duration {
	if enabled && d < initialHealthInterval {
		return initialHealthInterval
	}
	return d
}
