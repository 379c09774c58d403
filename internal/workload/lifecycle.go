/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package workload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/event"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
)

// Lifecycle is the per-workload state machine. It reads the current state
// of its deployment entirely from annotations at the start of every tick,
// mutates them, patches them back, and reschedules itself — no state lives
// in the Lifecycle struct across ticks beyond the identity needed to find
// the deployment again.
type Lifecycle struct {
	when      time.Time
	gw        *clustergateway.Gateway
	health    *health.Oracle
	namespace string
	name      string
	cfg       LifecycleConfig
	watchers  *WatcherPool
	log       logr.Logger
}

// NewLifecycle creates a Lifecycle tick for the named deployment. Callers
// set its When() before scheduling (a fresh workload wants "now"; resumed
// workloads also want "now", letting overdue annotations catch up
// immediately; a drift-defense reschedule wants the deployment's own
// recorded osio-next-time).
func NewLifecycle(gw *clustergateway.Gateway, healthOracle *health.Oracle, namespace, name string, cfg LifecycleConfig, watchers *WatcherPool, log logr.Logger) *Lifecycle {
	return &Lifecycle{
		gw:        gw,
		health:    healthOracle,
		namespace: namespace,
		name:      name,
		cfg:       cfg,
		watchers:  watchers,
		log:       log.WithName("lifecycle").WithValues("namespace", namespace, "deployment", name),
	}
}

func (l *Lifecycle) When() time.Time { return l.when }
func (l *Lifecycle) Name() string    { return "workload.Lifecycle" }

func (l *Lifecycle) Execute(ctx context.Context) ([]event.Action, error) {
	start := time.Now()
	defer func() { metrics.LifecycleTickDurationSeconds.Observe(time.Since(start).Seconds()) }()

	obj, err := l.gw.Get(ctx, deploymentGVR, l.namespace, l.name)
	if err != nil {
		return nil, fmt.Errorf("get deployment %s/%s: %w", l.namespace, l.name, err)
	}

	annotations, _, err := unstructured.NestedStringMap(obj.Object, "metadata", "annotations")
	if err != nil {
		return nil, fmt.Errorf("read annotations of %s/%s: %w", l.namespace, l.name, err)
	}

	rawNextAction, hasNextAction := annotations[AnnotationNextAction]
	now := time.Now()

	if !hasNextAction {
		return l.firstTick(ctx, obj, annotations, now)
	}

	nextTime, err := parseEpoch(annotations[AnnotationNextTime])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationNextTime, err)
	}
	if nextTime.After(now) {
		return l.reschedule(nextTime), nil
	}

	action := NextAction(rawNextAction)
	if !action.Valid() {
		return nil, fmt.Errorf("deployment %s/%s has invalid %s %q", l.namespace, l.name, AnnotationNextAction, rawNextAction)
	}

	switch action {
	case NextActionDestroy:
		return l.destroy(ctx, annotations)
	case NextActionHealth:
		return l.checkHealth(ctx, obj, annotations, now)
	case NextActionIdle:
		return l.flipIdleActive(ctx, obj, annotations, now)
	default:
		return nil, fmt.Errorf("unhandled next action %q", action)
	}
}

// reschedule defends against clock drift: the deployment's own recorded
// next-time is still in the future, so just try again then.
func (l *Lifecycle) reschedule(at time.Time) []event.Action {
	next := *l
	next.when = at
	return []event.Action{&next}
}

func (l *Lifecycle) firstTick(ctx context.Context, obj *unstructured.Unstructured, annotations map[string]string, now time.Time) ([]event.Action, error) {
	destroyAt, err := parseEpoch(annotations[AnnotationDestroyAt])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationDestroyAt, err)
	}
	idleMean, err := parseSeconds(annotations[AnnotationIdle])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationIdle, err)
	}

	idleAt := now.Add(clampMinRuntime(expDuration(idleMean), l.cfg.WorkaroundMinRuntime))
	healthAt := now.Add(initialHealthInterval)

	if err := l.patchSchedule(ctx, annotations, destroyAt, idleAt, healthAt, nil); err != nil {
		return nil, err
	}

	return l.nextTickAfter(destroyAt, idleAt, healthAt), nil
}

func (l *Lifecycle) destroy(ctx context.Context, annotations map[string]string) ([]event.Action, error) {
	pvcName := annotations[AnnotationPVC]

	l.log.Info("destroying workload", "pvc", pvcName)
	if err := l.gw.Delete(ctx, deploymentGVR, l.namespace, l.name); err != nil {
		return nil, fmt.Errorf("delete deployment %s/%s: %w", l.namespace, l.name, err)
	}
	if err := l.gw.Delete(ctx, pvcGVR, l.namespace, pvcName); err != nil {
		return nil, fmt.Errorf("delete pvc %s/%s: %w", l.namespace, pvcName, err)
	}

	metrics.WorkloadsLifecycleTicksTotal.WithLabelValues(string(NextActionDestroy)).Inc()
	metrics.WorkloadsDestroyedTotal.Inc()
	metrics.WorkloadsActive.Dec()

	return nil, nil
}

func (l *Lifecycle) checkHealth(ctx context.Context, obj *unstructured.Unstructured, annotations map[string]string, now time.Time) ([]event.Action, error) {
	replicas, _, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")

	if replicas == 1 && ready != 1 {
		return nil, &UnhealthyDeploymentError{Namespace: l.namespace, Name: l.name}
	}

	destroyAt, err := parseEpoch(annotations[AnnotationDestroyAt])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationDestroyAt, err)
	}
	idleAt, err := parseEpoch(annotations[AnnotationIdleAt])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationIdleAt, err)
	}
	healthAt := now.Add(runningHealthInterval)

	if err := l.patchSchedule(ctx, annotations, destroyAt, idleAt, healthAt, nil); err != nil {
		return nil, err
	}
	metrics.WorkloadsLifecycleTicksTotal.WithLabelValues(string(NextActionHealth)).Inc()

	return l.nextTickAfter(destroyAt, idleAt, healthAt), nil
}

func (l *Lifecycle) flipIdleActive(ctx context.Context, obj *unstructured.Unstructured, annotations map[string]string, now time.Time) ([]event.Action, error) {
	replicas, _, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")

	destroyAt, err := parseEpoch(annotations[AnnotationDestroyAt])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AnnotationDestroyAt, err)
	}

	var newReplicas int64
	var idleAt, healthAt time.Time

	if replicas == 0 {
		// idle -> active
		newReplicas = 1
		activeMean, err := parseSeconds(annotations[AnnotationActive])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", AnnotationActive, err)
		}
		idleAt = now.Add(clampMinRuntime(expDuration(activeMean), l.cfg.WorkaroundMinRuntime))
		healthAt = now.Add(initialHealthInterval)
	} else {
		// active -> idle
		newReplicas = 0
		idleMean, err := parseSeconds(annotations[AnnotationIdle])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", AnnotationIdle, err)
		}
		idleAt = now.Add(clampMinRuntime(expDuration(idleMean), l.cfg.WorkaroundMinRuntime))
		healthAt = now.Add(runningHealthInterval)
	}

	if err := l.patchSchedule(ctx, annotations, destroyAt, idleAt, healthAt, &newReplicas); err != nil {
		return nil, err
	}
	metrics.WorkloadsLifecycleTicksTotal.WithLabelValues(string(NextActionIdle)).Inc()

	return l.nextTickAfter(destroyAt, idleAt, healthAt), nil
}

// patchSchedule writes the lifecycle annotations (and, if replicas is
// non-nil, spec.replicas) back via a JSON merge patch.
func (l *Lifecycle) patchSchedule(ctx context.Context, annotations map[string]string, destroyAt, idleAt, healthAt time.Time, replicas *int64) error {
	nextTime, nextAction := nextDue(destroyAt, idleAt, healthAt)

	patched := make(map[string]string, len(annotations)+5)
	for k, v := range annotations {
		patched[k] = v
	}
	patched[AnnotationDestroyAt] = formatEpoch(destroyAt)
	patched[AnnotationIdleAt] = formatEpoch(idleAt)
	patched[AnnotationHealthAt] = formatEpoch(healthAt)
	patched[AnnotationNextTime] = formatEpoch(nextTime)
	patched[AnnotationNextAction] = string(nextAction)

	body := map[string]interface{}{
		"metadata": map[string]interface{}{
			"annotations": patched,
		},
	}
	if replicas != nil {
		body["spec"] = map[string]interface{}{"replicas": *replicas}
	}

	data, err := marshalPatch(body)
	if err != nil {
		return fmt.Errorf("marshal patch for %s/%s: %w", l.namespace, l.name, err)
	}

	if _, err := l.gw.Patch(ctx, deploymentGVR, l.namespace, l.name, types.MergePatchType, data); err != nil {
		return fmt.Errorf("patch %s/%s: %w", l.namespace, l.name, err)
	}
	return nil
}

func (l *Lifecycle) nextTickAfter(destroyAt, idleAt, healthAt time.Time) []event.Action {
	nextTime, _ := nextDue(destroyAt, idleAt, healthAt)
	next := NewLifecycle(l.gw, l.health, l.namespace, l.name, l.cfg, l.watchers, l.log)
	next.when = nextTime
	return []event.Action{next}
}

func marshalPatch(body map[string]interface{}) ([]byte, error) {
	return json.Marshal(body)
}
