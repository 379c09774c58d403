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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/event"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
)

// Resume finds every deployment this controller owns (labeled
// controller=osio) and schedules a Lifecycle tick for each at "now", so a
// restarted dispatcher picks up exactly where a previous run left off.
// A resumed workload's annotations already carry its own destroy-at/
// idle-at/health-at state, so its first tick after resumption behaves
// identically to any other drift-defense or dispatch tick — there is no
// separate resumption code path inside Lifecycle itself.
func Resume(ctx context.Context, gw *clustergateway.Gateway, healthOracle *health.Oracle, namespace string, lifespan LifecycleConfig, watchers *WatcherPool, log logr.Logger) ([]event.Action, error) {
	selector := labels.SelectorFromSet(map[string]string{ControllerLabel: ControllerLabelValue}).String()
	list, err := gw.List(ctx, deploymentGVR, namespace, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("list owned deployments in %s: %w", namespace, err)
	}

	actions := make([]event.Action, 0, len(list.Items))
	now := time.Now()
	for _, item := range list.Items {
		lifecycle := NewLifecycle(gw, healthOracle, namespace, item.GetName(), lifespan, watchers, log)
		lifecycle.when = now
		actions = append(actions, lifecycle)
	}

	log.Info("resumed owned workloads", "namespace", namespace, "count", len(actions))
	metrics.WorkloadsActive.Set(float64(len(actions)))

	return actions, nil
}
