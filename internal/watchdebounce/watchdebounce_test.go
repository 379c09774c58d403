/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package watchdebounce

import (
	"testing"
	"time"
)

func TestDebouncer_FirstAlwaysFires(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	if !d.ShouldFire("default/pod-1/1") {
		t.Error("first call should always fire")
	}
}

func TestDebouncer_SecondWithinWindowDropped(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	d.ShouldFire("default/pod-1/1")

	if d.ShouldFire("default/pod-1/1") {
		t.Error("second call within window should be dropped")
	}
}

func TestDebouncer_DifferentGenerationIndependent(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	d.ShouldFire("default/pod-1/1")

	if !d.ShouldFire("default/pod-1/2") {
		t.Error("a new generation of the same pod should fire independently")
	}
}

func TestDebouncer_DefaultWindow(t *testing.T) {
	d := NewDebouncer(0)
	if d.window != 30*time.Second {
		t.Errorf("expected 30s default, got %v", d.window)
	}
}

func TestDebouncer_Reset(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	d.ShouldFire("default/pod-1/1")
	d.Reset()

	if !d.ShouldFire("default/pod-1/1") {
		t.Error("should fire after reset")
	}
}

func TestDebouncer_CleanRemovesStaleEntries(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.ShouldFire("default/pod-1/1")

	time.Sleep(30 * time.Millisecond)
	d.Clean()

	d.mu.Lock()
	_, exists := d.last["default/pod-1/1"]
	d.mu.Unlock()
	if exists {
		t.Error("expected stale entry to be cleaned")
	}
}
