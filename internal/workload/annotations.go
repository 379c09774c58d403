/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package workload

import (
	"fmt"
	"strconv"
	"time"
)

// Annotation keys stamped on every tenant deployment this controller owns.
// osio-next-time/osio-next-action are derived, not independently settable:
// they always mirror whichever of destroy-at/idle-at/health-at is soonest.
const (
	AnnotationActive     = "osio-active"
	AnnotationIdle       = "osio-idle"
	AnnotationDestroyAt  = "osio-destroy-at"
	AnnotationIdleAt     = "osio-idle-at"
	AnnotationHealthAt   = "osio-health-at"
	AnnotationNextTime   = "osio-next-time"
	AnnotationNextAction = "osio-next-action"
	AnnotationPVC        = "osio-pvc"

	// ControllerLabel marks a deployment as owned by this controller, so
	// resumption can find it again after a restart.
	ControllerLabel      = "controller"
	ControllerLabelValue = "osio"
)

// NextAction is the closed set of lifecycle dispatch targets. A value
// outside this set is a hard error: there is no recovery path for it.
type NextAction string

const (
	NextActionDestroy NextAction = "destroy"
	NextActionIdle    NextAction = "idle"
	NextActionHealth  NextAction = "health"
)

func (a NextAction) Valid() bool {
	switch a {
	case NextActionDestroy, NextActionIdle, NextActionHealth:
		return true
	default:
		return false
	}
}

// formatEpoch encodes an absolute time as the float-seconds-since-epoch
// string the annotations use, matching the textual encoding the original
// Python controller wrote with time.time().
func formatEpoch(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64)
}

// parseEpoch decodes an annotation written by formatEpoch.
func parseEpoch(s string) (time.Time, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse epoch annotation %q: %w", s, err)
	}
	return time.Unix(0, int64(secs*1e9)), nil
}

// formatSeconds encodes a duration as a float-seconds string, used for the
// osio-active/osio-idle mean annotations.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func parseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seconds annotation %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// nextDue picks the soonest of the three scheduled timestamps and the
// action that owns it, satisfying the lifecycle annotation invariant
// (osio-next-time == min(...), osio-next-action identifies the winner).
func nextDue(destroyAt, idleAt, healthAt time.Time) (time.Time, NextAction) {
	next := destroyAt
	action := NextActionDestroy
	if idleAt.Before(next) {
		next = idleAt
		action = NextActionIdle
	}
	if healthAt.Before(next) {
		next = healthAt
		action = NextActionHealth
	}
	return next, action
}
