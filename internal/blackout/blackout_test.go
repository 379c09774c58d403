/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package blackout

import (
	"testing"
	"time"
)

func TestNewWindow_EmptyExprDisabled(t *testing.T) {
	w, err := NewWindow("", time.Hour, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Active(time.Now()) {
		t.Fatal("disabled window should never be active")
	}
}

func TestNewWindow_InvalidCron(t *testing.T) {
	if _, err := NewWindow("not a cron", time.Hour, "UTC"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewWindow_InvalidTimezone(t *testing.T) {
	if _, err := NewWindow("0 2 * * *", time.Hour, "Nowhere/Fake"); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestNewWindow_NonPositiveDuration(t *testing.T) {
	if _, err := NewWindow("0 2 * * *", 0, "UTC"); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}

func TestWindow_ActiveInsideWindow(t *testing.T) {
	// Window starts at 02:00 UTC daily, lasts 1 hour.
	w, err := NewWindow("0 2 * * *", time.Hour, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inside := time.Date(2026, 3, 5, 2, 30, 0, 0, time.UTC)
	if !w.Active(inside) {
		t.Fatal("expected window to be active 30 minutes after start")
	}
}

func TestWindow_InactiveOutsideWindow(t *testing.T) {
	w, err := NewWindow("0 2 * * *", time.Hour, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outside := time.Date(2026, 3, 5, 4, 0, 0, 0, time.UTC)
	if w.Active(outside) {
		t.Fatal("expected window to be inactive 2 hours after start")
	}
}

func TestWindow_ActiveAtExactBoundary(t *testing.T) {
	w, err := NewWindow("0 2 * * *", time.Hour, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC)
	if !w.Active(start) {
		t.Fatal("expected window to be active exactly at its start")
	}

	end := time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC)
	if w.Active(end) {
		t.Fatal("expected window to be inactive exactly at its end")
	}
}

func TestWindow_NilWindowIsInactive(t *testing.T) {
	var w *Window
	if w.Active(time.Now()) {
		t.Fatal("nil window should never be active")
	}
}
