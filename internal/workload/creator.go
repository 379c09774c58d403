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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/event"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
)

// Creator is a re-queueing event.Action that spawns a new tenant workload,
// schedules its eventual destruction, and schedules its own successor at
// an exponentially distributed interarrival time. Its own When() is drawn
// at construction, matching the interarrival distribution of the workload
// population as a whole.
type Creator struct {
	when     time.Time
	gw       *clustergateway.Gateway
	health   *health.Oracle
	factory  FactoryConfig
	lifespan LifecycleConfig
	watchers *WatcherPool
	log      logr.Logger
}

// NewCreator builds a Creator whose own deadline is drawn from the
// interarrival mean; it is meant to be chained by a previous Creator's
// Execute, or constructed once to seed a fresh dispatcher.
func NewCreator(gw *clustergateway.Gateway, healthOracle *health.Oracle, factory FactoryConfig, lifespan LifecycleConfig, watchers *WatcherPool, log logr.Logger) *Creator {
	return &Creator{
		when:     time.Now().Add(expDuration(lifespan.Interarrival)),
		gw:       gw,
		health:   healthOracle,
		factory:  factory,
		lifespan: lifespan,
		watchers: watchers,
		log:      log.WithName("creator"),
	}
}

func (c *Creator) When() time.Time { return c.when }
func (c *Creator) Name() string    { return "workload.Creator" }

func (c *Creator) Execute(ctx context.Context) ([]event.Action, error) {
	destroyAt := time.Now().Add(expDuration(c.lifespan.Lifetime))

	deployment, pvc, uid := BuildManifests(c.factory)
	name := deployment.GetName()
	pvcName := pvc.GetName()

	setAnnotation(deployment, AnnotationActive, formatSeconds(c.lifespan.ActiveTime))
	setAnnotation(deployment, AnnotationIdle, formatSeconds(c.lifespan.IdleTime))
	setAnnotation(deployment, AnnotationDestroyAt, formatEpoch(destroyAt))
	setAnnotation(deployment, AnnotationPVC, pvcName)

	c.log.Info("creating workload", "namespace", c.factory.Namespace, "deployment", name, "uid", uid)

	if _, err := c.gw.Create(ctx, pvcGVR, c.factory.Namespace, pvc); err != nil {
		return nil, fmt.Errorf("create pvc %s: %w", pvcName, err)
	}
	if _, err := c.gw.Create(ctx, deploymentGVR, c.factory.Namespace, deployment); err != nil {
		return nil, fmt.Errorf("create deployment %s: %w", name, err)
	}

	metrics.WorkloadsCreatedTotal.Inc()
	metrics.WorkloadsActive.Inc()

	if c.watchers != nil {
		matchLabels := map[string]string{"deployment-id": uid}
		c.watchers.WatchStart(ctx, name, deployment.GetGeneration(), matchLabels)
	}

	lifecycle := NewLifecycle(c.gw, c.health, c.factory.Namespace, name, c.lifespan, c.watchers, c.log)
	lifecycle.when = time.Now()

	next := NewCreator(c.gw, c.health, c.factory, c.lifespan, c.watchers, c.log)

	return []event.Action{lifecycle, next}, nil
}

func setAnnotation(obj *unstructured.Unstructured, key, value string) {
	annotations, found, _ := unstructured.NestedStringMap(obj.Object, "metadata", "annotations")
	if !found || annotations == nil {
		annotations = map[string]string{}
	}
	annotations[key] = value
	_ = unstructured.SetNestedStringMap(obj.Object, annotations, "metadata", "annotations")
}
