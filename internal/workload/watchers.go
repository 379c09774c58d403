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
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/watchdebounce"
)

// watcherPoolCapacity bounds how many pod watches may be open concurrently,
// so a burst of workload creation/destruction can never exhaust cluster
// watch connections.
const watcherPoolCapacity = 100

// watchTimeout is how long a single start/stop watch is allowed to run
// before it gives up silently. These watches are observability only: they
// never feed back into the dispatcher.
const watchTimeout = 60 * time.Second

// WatcherPool runs bounded, detached pod start/stop watches for tenant
// workloads. It never returns event.Action values and never errors out to
// its caller: a watch that fails or times out just logs and returns.
type WatcherPool struct {
	gw        *clustergateway.Gateway
	namespace string
	debounce  *watchdebounce.Debouncer
	log       logr.Logger
	sem       chan struct{}
}

// NewWatcherPool creates a pool bounded to watcherPoolCapacity concurrent
// watches, debouncing repeated launches for the same (namespace, name,
// generation, watch kind) within the debouncer's default window.
func NewWatcherPool(gw *clustergateway.Gateway, namespace string, log logr.Logger) *WatcherPool {
	return &WatcherPool{
		gw:        gw,
		namespace: namespace,
		debounce:  watchdebounce.NewDebouncer(0),
		log:       log.WithName("watchers"),
		sem:       make(chan struct{}, watcherPoolCapacity),
	}
}

// WatchStart fires off a detached watch that logs when a pod matching
// matchLabels first becomes Running. It returns immediately; the watch
// itself runs on its own goroutine.
func (p *WatcherPool) WatchStart(ctx context.Context, name string, generation int64, matchLabels map[string]string) {
	p.launch(ctx, "start", name, generation, matchLabels, func(obj *unstructured.Unstructured) bool {
		phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
		return phase == "Running"
	})
}

// WatchStop fires off a detached watch that logs when a pod matching
// matchLabels is deleted.
func (p *WatcherPool) WatchStop(ctx context.Context, name string, generation int64, matchLabels map[string]string) {
	p.launch(ctx, "stop", name, generation, matchLabels, nil)
}

func (p *WatcherPool) launch(ctx context.Context, kind, name string, generation int64, matchLabels map[string]string, until func(*unstructured.Unstructured) bool) {
	key := fmt.Sprintf("%s/%s/%d/%s", p.namespace, name, generation, kind)
	if !p.debounce.ShouldFire(key) {
		return
	}

	select {
	case p.sem <- struct{}{}:
	default:
		p.log.Info("watcher pool saturated, dropping watch", "kind", kind, "deployment", name)
		return
	}

	go func() {
		defer func() { <-p.sem }()
		p.run(ctx, kind, name, matchLabels, until)
	}()
}

func (p *WatcherPool) run(ctx context.Context, kind, name string, matchLabels map[string]string, until func(*unstructured.Unstructured) bool) {
	start := time.Now()
	log := p.log.WithValues("kind", kind, "deployment", name)

	wctx, cancel := context.WithTimeout(ctx, watchTimeout)
	defer cancel()

	selector := labels.SelectorFromSet(matchLabels).String()
	w, err := p.gw.Watch(wctx, podGVR, p.namespace, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		log.Info("watch setup failed", "error", err.Error())
		return
	}
	defer w.Stop()

	for {
		select {
		case <-wctx.Done():
			log.Info("watch timed out", "elapsed", time.Since(start))
			return
		case event, ok := <-w.ResultChan():
			if !ok {
				return
			}
			if kind == "stop" {
				if event.Type == watch.Deleted {
					log.Info("pod deleted", "elapsed", time.Since(start))
					return
				}
				continue
			}
			obj, ok := event.Object.(*unstructured.Unstructured)
			if !ok {
				continue
			}
			if until != nil && until(obj) {
				log.Info("pod reached target phase", "elapsed", time.Since(start))
				return
			}
		}
	}
}
