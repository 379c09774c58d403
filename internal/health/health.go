/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package health answers whether the storage cluster under test is
// currently healthy, by reading the CephCluster status object Rook
// maintains in the target namespace. The fault-injection controller
// consults it (is it safe to kill this pod? has the cluster recovered?).
// The workload lifecycle engine carries an Oracle but judges a tenant's
// deployment by its replica counts, not by this package.
package health

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/go-logr/logr"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
)

// CephClusterGVR identifies the Rook CephCluster custom resource. The
// cluster's object is always named the same as the namespace it lives in.
var CephClusterGVR = schema.GroupVersionResource{
	Group:    "ceph.rook.io",
	Version:  "v1",
	Resource: "cephclusters",
}

// Problem describes one entry of status.ceph.details on an unhealthy
// CephCluster.
type Problem struct {
	Message  string
	Severity string
}

// Oracle reads cluster health from a CephCluster status object.
type Oracle struct {
	gw        *clustergateway.Gateway
	namespace string
	log       logr.Logger
}

// NewOracle creates a health Oracle scoped to a namespace's CephCluster.
func NewOracle(gw *clustergateway.Gateway, namespace string, log logr.Logger) *Oracle {
	return &Oracle{gw: gw, namespace: namespace, log: log.WithName("health")}
}

// Healthy reports whether the CephCluster currently reports HEALTH_OK.
func (o *Oracle) Healthy(ctx context.Context) (bool, error) {
	obj, err := o.gw.Get(ctx, CephClusterGVR, o.namespace, o.namespace)
	if err != nil {
		return false, fmt.Errorf("get cephcluster %s: %w", o.namespace, err)
	}

	status, found, err := unstructured.NestedString(obj.Object, "status", "ceph", "health")
	if err != nil {
		return false, fmt.Errorf("read status.ceph.health: %w", err)
	}
	if !found {
		return false, nil
	}
	return status == "HEALTH_OK", nil
}

// AwaitHealthy polls Healthy once per second until it returns true or
// timeout elapses, returning the final observed value.
func (o *Oracle) AwaitHealthy(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		healthy, err := o.Healthy(ctx)
		if err != nil {
			return false, err
		}
		if healthy {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// Problems returns the set of named problems Ceph is currently reporting.
// An empty map means the cluster reported no details, which usually (but
// not always, during a transient state) coincides with Healthy returning
// true.
func (o *Oracle) Problems(ctx context.Context) (map[string]Problem, error) {
	obj, err := o.gw.Get(ctx, CephClusterGVR, o.namespace, o.namespace)
	if err != nil {
		return nil, fmt.Errorf("get cephcluster %s: %w", o.namespace, err)
	}

	details, found, err := unstructured.NestedMap(obj.Object, "status", "ceph", "details")
	if err != nil {
		return nil, fmt.Errorf("read status.ceph.details: %w", err)
	}
	if !found {
		return map[string]Problem{}, nil
	}

	problems := make(map[string]Problem, len(details))
	for name, raw := range details {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		message, _ := entry["message"].(string)
		severity, _ := entry["severity"].(string)
		problems[name] = Problem{Message: message, Severity: severity}
	}
	return problems, nil
}
