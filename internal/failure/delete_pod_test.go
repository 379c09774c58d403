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
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
)

func newPod(ns, name string, labels map[string]string) *unstructured.Unstructured {
	obj := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata": map[string]interface{}{
			"namespace": ns,
			"name":      name,
		},
		"status": map[string]interface{}{"phase": "Running"},
	}
	if labels != nil {
		labelMap := make(map[string]interface{}, len(labels))
		for k, v := range labels {
			labelMap[k] = v
		}
		obj["metadata"].(map[string]interface{})["labels"] = labelMap
	}
	return &unstructured.Unstructured{Object: obj}
}

func newDeployment(ns, name string, selectorLabels map[string]string, replicas, readyReplicas int64) *unstructured.Unstructured {
	matchLabels := make(map[string]interface{}, len(selectorLabels))
	for k, v := range selectorLabels {
		matchLabels[k] = v
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"namespace": ns,
			"name":      name,
			"labels":    matchLabels,
		},
		"spec": map[string]interface{}{
			"replicas": replicas,
			"selector": map[string]interface{}{
				"matchLabels": matchLabels,
			},
		},
		"status": map[string]interface{}{
			"readyReplicas": readyReplicas,
		},
	}}
}

func newCephClusterHealthy(namespace string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ceph.rook.io/v1",
		"kind":       "CephCluster",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      namespace,
		},
		"status": map[string]interface{}{
			"ceph": map[string]interface{}{"health": "HEALTH_OK"},
		},
	}}
}

func newFakeGatewayFor(objs ...runtime.Object) *clustergateway.Gateway {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		podGVR:                "PodList",
		deploymentGVR:         "DeploymentList",
		health.CephClusterGVR: "CephClusterList",
		nodeGVR:               "NodeList",
	}
	dc := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, objs...)
	return clustergateway.NewForDynamicClient(dc, zap.New(zap.UseDevMode(true)))
}

func TestDeletePodType_Get_RequiresHealthyCluster(t *testing.T) {
	unhealthy := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ceph.rook.io/v1",
		"kind":       "CephCluster",
		"metadata":   map[string]interface{}{"namespace": "ns1", "name": "ns1"},
		"status": map[string]interface{}{
			"ceph": map[string]interface{}{"health": "HEALTH_ERR"},
		},
	}}
	gw := newFakeGatewayFor(
		newDeployment("ns1", "d1", map[string]string{"app": "sut"}, 3, 3),
		newPod("ns1", "p1", map[string]string{"app": "sut"}),
		unhealthy,
	)
	oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
	ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

	_, err := ft.Get(context.Background())
	if _, ok := err.(*NoSafeFailuresError); !ok {
		t.Fatalf("expected *NoSafeFailuresError for an unhealthy cluster, got %T: %v", err, err)
	}
}

func TestDeletePodType_Get_RequiresMatchingDeployments(t *testing.T) {
	gw := newFakeGatewayFor(newCephClusterHealthy("ns1"))
	oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
	ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

	_, err := ft.Get(context.Background())
	if _, ok := err.(*NoSafeFailuresError); !ok {
		t.Fatalf("expected *NoSafeFailuresError with no matching deployments, got %T: %v", err, err)
	}
}

func TestDeletePodType_Get_RequiresFullyReadyDeployments(t *testing.T) {
	gw := newFakeGatewayFor(
		newDeployment("ns1", "d1", map[string]string{"app": "sut"}, 3, 3),
		newDeployment("ns1", "d2", map[string]string{"app": "sut"}, 3, 2),
		newPod("ns1", "p1", map[string]string{"app": "sut"}),
		newCephClusterHealthy("ns1"),
	)
	oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
	ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

	_, err := ft.Get(context.Background())
	if _, ok := err.(*NoSafeFailuresError); !ok {
		t.Fatalf("expected *NoSafeFailuresError when a matched deployment is degraded, got %T: %v", err, err)
	}
}

func TestDeletePodType_Get_ReturnsPodUnderReadyDeployment(t *testing.T) {
	gw := newFakeGatewayFor(
		newDeployment("ns1", "d1", map[string]string{"app": "sut"}, 2, 2),
		newPod("ns1", "p1", map[string]string{"app": "sut"}),
		newPod("ns1", "p2", map[string]string{"app": "sut"}),
		newCephClusterHealthy("ns1"),
	)
	oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
	ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

	f, err := ft.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dp, ok := f.(*DeletePod)
	if !ok {
		t.Fatalf("expected *DeletePod, got %T", f)
	}
	if dp.namespace != "ns1" {
		t.Fatalf("expected namespace ns1, got %q", dp.namespace)
	}
	if dp.deploymentName != "d1" {
		t.Fatalf("expected deployment d1, got %q", dp.deploymentName)
	}
	if dp.podName != "p1" && dp.podName != "p2" {
		t.Fatalf("expected p1 or p2, got %q", dp.podName)
	}
}

func TestDeletePod_Invoke_DeletesThePod(t *testing.T) {
	gw := newFakeGatewayFor(newPod("ns1", "p1", nil))
	f := &DeletePod{gw: gw, namespace: "ns1", podName: "p1", deploymentName: "d1"}

	if err := f.Invoke(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := gw.Get(context.Background(), podGVR, "ns1", "p1")
	if err == nil {
		t.Fatal("expected pod to be gone after Invoke")
	}
}

func TestDeletePod_Repair_IsNoOp(t *testing.T) {
	f := &DeletePod{gw: nil, namespace: "ns1", podName: "p1", deploymentName: "d1"}
	if err := f.Repair(context.Background()); err != nil {
		t.Fatalf("expected Repair to be a no-op, got %v", err)
	}
}

func TestDeletePod_String(t *testing.T) {
	f := &DeletePod{namespace: "ns1", podName: "p1", deploymentName: "d1"}
	want := "F(delete pod: ns1/p1 of d1)"
	if got := f.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDeploymentFullyReady(t *testing.T) {
	if !deploymentFullyReady(newDeployment("ns1", "d1", nil, 3, 3).Object) {
		t.Fatal("expected 3/3 replicas to be fully ready")
	}
	if deploymentFullyReady(newDeployment("ns1", "d1", nil, 3, 2).Object) {
		t.Fatal("expected 2/3 replicas to not be fully ready")
	}
}
