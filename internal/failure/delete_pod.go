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

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
)

var (
	podGVR        = schema.GroupVersionResource{Version: "v1", Resource: "pods"}
	deploymentGVR = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
)

// DeletePod kills a single, specific pod belonging to a specific
// deployment. Mitigation is judged against the deployment, not the pod
// itself, since a killed pod may come back under a different name.
type DeletePod struct {
	gw             *clustergateway.Gateway
	namespace      string
	podName        string
	deploymentName string
}

func (f *DeletePod) String() string {
	return fmt.Sprintf("F(delete pod: %s/%s of %s)", f.namespace, f.podName, f.deploymentName)
}

// Invoke deletes the pod immediately (zero grace period).
func (f *DeletePod) Invoke(ctx context.Context) error {
	grace := int64(0)
	return f.gw.DeleteWithOptions(ctx, podGVR, f.namespace, f.podName, metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
	})
}

// Mitigated watches the owning deployment until its ready replica count
// matches its desired replica count, bounded by timeout. A timeout of
// zero watches without a server-side deadline until ctx is cancelled.
func (f *DeletePod) Mitigated(ctx context.Context, timeout time.Duration) (bool, error) {
	opts := metav1.ListOptions{
		FieldSelector: fmt.Sprintf("metadata.name=%s", f.deploymentName),
	}
	if timeout > 0 {
		seconds := int64(timeout.Seconds())
		opts.TimeoutSeconds = &seconds
	}

	w, err := f.gw.Watch(ctx, deploymentGVR, f.namespace, opts)
	if err != nil {
		return false, fmt.Errorf("watch deployment %s/%s: %w", f.namespace, f.deploymentName, err)
	}
	defer w.Stop()

	for event := range w.ResultChan() {
		dep, ok := event.Object.(*unstructured.Unstructured)
		if !ok {
			continue
		}
		if deploymentFullyReady(dep.Object) {
			return true, nil
		}
	}
	return false, nil
}

// Repair is a no-op: the deployment controller replaces the killed pod
// on its own, leaving nothing on the infrastructure itself to clean up.
func (f *DeletePod) Repair(ctx context.Context) error {
	return nil
}

func deploymentFullyReady(obj map[string]interface{}) bool {
	replicas, _, _ := unstructured.NestedInt64(obj, "spec", "replicas")
	ready, _, _ := unstructured.NestedInt64(obj, "status", "readyReplicas")
	return replicas == ready
}

// DeletePodType selects a pod to kill only when every deployment matching
// a label selector has all its replicas ready: it then chooses one of
// those deployments at random, then one of its pods at random.
type DeletePodType struct {
	gw        *clustergateway.Gateway
	health    *health.Oracle
	namespace string
	labels    map[string]string
}

// NewDeletePodType creates a DeletePodType targeting deployments matching
// labels in namespace.
func NewDeletePodType(gw *clustergateway.Gateway, healthOracle *health.Oracle, namespace string, labelSelector map[string]string) *DeletePodType {
	return &DeletePodType{gw: gw, health: healthOracle, namespace: namespace, labels: labelSelector}
}

func (t *DeletePodType) String() string {
	return fmt.Sprintf("FT(delete pod: ns:%s selector:%v)", t.namespace, t.labels)
}

// Get returns a random pod of a random fully-ready matching deployment,
// or a *NoSafeFailuresError if the cluster is unhealthy, no deployments
// match, or any matched deployment is degraded.
func (t *DeletePodType) Get(ctx context.Context) (Failure, error) {
	healthy, err := t.health.Healthy(ctx)
	if err != nil {
		return nil, fmt.Errorf("check cluster health before delete pod: %w", err)
	}
	if !healthy {
		return nil, &NoSafeFailuresError{Reason: "cluster unhealthy"}
	}

	selector := labels.SelectorFromSet(t.labels).String()
	deps, err := t.gw.List(ctx, deploymentGVR, t.namespace, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("list deployments matching %q: %w", selector, err)
	}
	if len(deps.Items) == 0 {
		return nil, &NoSafeFailuresError{Reason: fmt.Sprintf("no deployments matched selector %q", selector)}
	}

	for _, dep := range deps.Items {
		if !deploymentFullyReady(dep.Object) {
			return nil, &NoSafeFailuresError{Reason: fmt.Sprintf("deployment %s is not fully ready, no pods safe to kill", dep.GetName())}
		}
	}

	dep := deps.Items[rand.Intn(len(deps.Items))]

	matchLabels, _, err := unstructured.NestedStringMap(dep.Object, "spec", "selector", "matchLabels")
	if err != nil {
		return nil, fmt.Errorf("read spec.selector.matchLabels of %s: %w", dep.GetName(), err)
	}

	podSelector := labels.SelectorFromSet(matchLabels).String()
	pods, err := t.gw.List(ctx, podGVR, t.namespace, metav1.ListOptions{LabelSelector: podSelector})
	if err != nil {
		return nil, fmt.Errorf("list pods of deployment %s: %w", dep.GetName(), err)
	}
	if len(pods.Items) == 0 {
		return nil, &NoSafeFailuresError{Reason: fmt.Sprintf("deployment %s matched but has no pods", dep.GetName())}
	}

	pod := pods.Items[rand.Intn(len(pods.Items))]

	return &DeletePod{
		gw:             t.gw,
		namespace:      t.namespace,
		podName:        pod.GetName(),
		deploymentName: dep.GetName(),
	}, nil
}
