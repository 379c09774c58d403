/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package workload implements the tenant workload generator: a factory
// that builds unique deployment+volume-claim manifests, a Creator action
// that spawns them at exponentially distributed intervals, and a Lifecycle
// action that drives each one through create -> (active<->idle)* ->
// destroy, with its state persisted entirely in deployment annotations so
// a controller restart can resume from whatever the cluster holds.
package workload

import (
	"fmt"
	"math/rand"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	deploymentGVR = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	pvcGVR        = schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}
	podGVR        = schema.GroupVersionResource{Version: "v1", Resource: "pods"}
)

// FactoryConfig parameterizes the manifests BuildManifests produces.
type FactoryConfig struct {
	Namespace    string
	StorageClass string
	// AccessMode is one of "RWO" or "RWM".
	AccessMode string
	Image      string

	// KernelSlots, KernelUntarPerHour, KernelRmPerHour are opaque knobs
	// threaded into the container's environment for the in-pod workload
	// binary to interpret; this package never inspects their meaning.
	KernelSlots        int
	KernelUntarPerHour float64
	KernelRmPerHour    float64
}

func accessModeString(mode string) string {
	if mode == "RWM" {
		return "ReadWriteMany"
	}
	return "ReadWriteOnce"
}

func pvcSize(cfg FactoryConfig) string {
	if cfg.KernelSlots > 0 {
		return "3Gi"
	}
	return "1Gi"
}

// newUID produces a fresh 9-decimal-digit identifier for a workload
// instance, used to name both its deployment and its volume claim.
func newUID() string {
	return fmt.Sprintf("%09d", rand.Intn(1_000_000_000))
}

// BuildManifests produces a fresh deployment and volume claim pair,
// keyed by a random uid. Lifecycle annotations are not stamped here; the
// Creator stamps them after the factory returns.
func BuildManifests(cfg FactoryConfig) (deployment, pvc *unstructured.Unstructured, uid string) {
	uid = newUID()

	matchLabels := map[string]interface{}{"deployment-id": uid}
	pvcName := "pvc-" + uid

	deployment = &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name":      "osio-worker-" + uid,
			"namespace": cfg.Namespace,
			"labels": map[string]interface{}{
				ControllerLabel: ControllerLabelValue,
				"deployment-id": uid,
			},
		},
		"spec": map[string]interface{}{
			"replicas": int64(1),
			"selector": map[string]interface{}{
				"matchLabels": matchLabels,
			},
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"labels": matchLabels,
				},
				"spec": map[string]interface{}{
					"containers": []interface{}{
						map[string]interface{}{
							"name":  "osio-workload",
							"image": cfg.Image,
							"env": []interface{}{
								map[string]interface{}{"name": "OSIO_KERNEL_SLOTS", "value": fmt.Sprintf("%d", cfg.KernelSlots)},
								map[string]interface{}{"name": "OSIO_KERNEL_UNTAR_PER_HOUR", "value": fmt.Sprintf("%g", cfg.KernelUntarPerHour)},
								map[string]interface{}{"name": "OSIO_KERNEL_RM_PER_HOUR", "value": fmt.Sprintf("%g", cfg.KernelRmPerHour)},
							},
							"volumeMounts": []interface{}{
								map[string]interface{}{"name": "data", "mountPath": "/data"},
							},
							"readinessProbe": map[string]interface{}{
								"exec": map[string]interface{}{
									"command": []interface{}{"/health.sh"},
								},
								"initialDelaySeconds": int64(5),
								"periodSeconds":       int64(10),
							},
						},
					},
					"volumes": []interface{}{
						map[string]interface{}{
							"name": "data",
							"persistentVolumeClaim": map[string]interface{}{
								"claimName": pvcName,
							},
						},
					},
				},
			},
		},
	}}

	pvc = &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "PersistentVolumeClaim",
		"metadata": map[string]interface{}{
			"name":      pvcName,
			"namespace": cfg.Namespace,
		},
		"spec": map[string]interface{}{
			"accessModes": []interface{}{accessModeString(cfg.AccessMode)},
			"resources": map[string]interface{}{
				"requests": map[string]interface{}{
					"storage": pvcSize(cfg),
				},
			},
			"storageClassName": cfg.StorageClass,
		},
	}}

	return deployment, pvc, uid
}
