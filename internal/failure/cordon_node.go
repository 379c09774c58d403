/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package failure

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
)

var nodeGVR = schema.GroupVersionResource{Version: "v1", Resource: "nodes"}

// CordonNode marks a node unschedulable. Unlike DeletePod, its repair is
// not a no-op: the node stays unschedulable until CordonNode.Repair runs.
type CordonNode struct {
	gw   *clustergateway.Gateway
	name string
}

func (f *CordonNode) String() string {
	return fmt.Sprintf("F(cordon node: %s)", f.name)
}

// Invoke patches the node to spec.unschedulable=true.
func (f *CordonNode) Invoke(ctx context.Context) error {
	return f.patchUnschedulable(ctx, true)
}

// Mitigated is immediate-true: cordoning only prevents new pods from
// being scheduled, it does not evict anything already running, so there
// is nothing for the SUT to recover from.
func (f *CordonNode) Mitigated(ctx context.Context, timeout time.Duration) (bool, error) {
	return true, nil
}

// Repair clears spec.unschedulable. Until this runs the node remains
// cordoned, which is why this fault is the one that forces the chaos
// loop's shutdown coordinator to have a force-repair path.
func (f *CordonNode) Repair(ctx context.Context) error {
	return f.patchUnschedulable(ctx, false)
}

func (f *CordonNode) patchUnschedulable(ctx context.Context, unschedulable bool) error {
	patch := []byte(fmt.Sprintf(`{"spec":{"unschedulable":%t}}`, unschedulable))
	_, err := f.gw.Patch(ctx, nodeGVR, "", f.name, types.MergePatchType, patch)
	if err != nil {
		return fmt.Errorf("patch node %s unschedulable=%t: %w", f.name, unschedulable, err)
	}
	return nil
}

// CordonNodeType selects a random Ready node matching a label selector,
// requiring at least 2 Ready candidates before cordoning one (cordoning
// the last Ready node is never safe).
type CordonNodeType struct {
	gw     *clustergateway.Gateway
	labels map[string]string
}

// NewCordonNodeType creates a CordonNodeType targeting nodes matching
// nodeLabels.
func NewCordonNodeType(gw *clustergateway.Gateway, nodeLabels map[string]string) *CordonNodeType {
	return &CordonNodeType{gw: gw, labels: nodeLabels}
}

func (t *CordonNodeType) String() string {
	return fmt.Sprintf("FT(cordon node: selector:%v)", t.labels)
}

func (t *CordonNodeType) Get(ctx context.Context) (Failure, error) {
	selector := labels.SelectorFromSet(t.labels).String()

	list, err := t.gw.List(ctx, nodeGVR, "", metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("list nodes matching %q: %w", selector, err)
	}

	var ready []string
	for _, node := range list.Items {
		if isNodeReady(node.Object) {
			ready = append(ready, node.GetName())
		}
	}

	if len(ready) < 2 {
		return nil, &NoSafeFailuresError{Reason: fmt.Sprintf("only %d ready nodes matched selector %q, need at least 2", len(ready), selector)}
	}

	name := ready[rand.Intn(len(ready))]
	return &CordonNode{gw: t.gw, name: name}, nil
}

func isNodeReady(obj map[string]interface{}) bool {
	conditions, found, err := unstructured.NestedSlice(obj, "status", "conditions")
	if err != nil || !found {
		return false
	}
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] == "Ready" && cond["status"] == "True" {
			return true
		}
	}
	return false
}
