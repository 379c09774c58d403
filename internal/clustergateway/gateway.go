/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package clustergateway is the single point of contact with the target
// Kubernetes cluster. Every object the chaos and workload loops touch
// (deployments, PVCs, pods, nodes, the Ceph cluster status object) is
// handled as an *unstructured.Unstructured tree rather than a typed
// struct, since the loops only ever read or patch a handful of fields
// and don't need the full generated API surface for each kind.
//
// Every call except Watch is retried against a configurable status-code
// policy: by default a 500 is retried after a one second sleep, anything
// else is returned as a typed Error. Watch streams are opened once and are
// not retried.
package clustergateway

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/clustergateway")

// RetryAction describes how a call() should react to a given HTTP status
// code returned by the API server.
type RetryAction string

const (
	RetryActionRetry  RetryAction = "retry"
	RetryActionIgnore RetryAction = "ignore"
)

// RetryPolicy maps HTTP status codes to the action a failed call should
// take. Codes absent from the policy propagate as a typed Error.
type RetryPolicy map[int32]RetryAction

// DefaultRetryPolicy retries server errors and propagates everything else.
var DefaultRetryPolicy = RetryPolicy{
	500: RetryActionRetry,
}

// Error wraps a cluster API failure that the retry policy did not absorb.
type Error struct {
	Op     string
	GVR    schema.GroupVersionResource
	Status int32
	Err    error
}

func (e *Error) Error() string {
	return e.Op + " " + e.GVR.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Gateway is a thin, retrying wrapper around a dynamic Kubernetes client.
type Gateway struct {
	log     logr.Logger
	dynamic dynamic.Interface
	policy  RetryPolicy
}

// NewGateway builds a Gateway from a REST config. QPS and Burst are tuned
// up from client-go's conservative defaults since the chaos and workload
// loops poll status objects frequently.
func NewGateway(cfg *rest.Config, log logr.Logger) (*Gateway, error) {
	tuned := rest.CopyConfig(cfg)
	if tuned.QPS == 0 {
		tuned.QPS = 20
	}
	if tuned.Burst == 0 {
		tuned.Burst = 40
	}

	dc, err := dynamic.NewForConfig(tuned)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		log:     log.WithName("clustergateway"),
		dynamic: dc,
		policy:  DefaultRetryPolicy,
	}, nil
}

// NewForDynamicClient builds a Gateway directly from a dynamic.Interface,
// bypassing REST config resolution. Used to point a Gateway at a fake
// client in tests, or at an already-constructed client in callers that
// manage their own REST config.
func NewForDynamicClient(dyn dynamic.Interface, log logr.Logger) *Gateway {
	return &Gateway{
		log:     log.WithName("clustergateway"),
		dynamic: dyn,
		policy:  DefaultRetryPolicy,
	}
}

// WithRetryPolicy returns a copy of the Gateway using the given policy
// instead of DefaultRetryPolicy.
func (g *Gateway) WithRetryPolicy(policy RetryPolicy) *Gateway {
	cp := *g
	cp.policy = policy
	return &cp
}

// Get fetches a single object.
func (g *Gateway) Get(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error) {
	return g.call(ctx, "get", gvr, func() (*unstructured.Unstructured, error) {
		return g.resource(gvr, namespace).Get(ctx, name, metav1.GetOptions{})
	})
}

// List fetches a collection of objects matching opts.
func (g *Gateway) List(ctx context.Context, gvr schema.GroupVersionResource, namespace string, opts metav1.ListOptions) (*unstructured.UnstructuredList, error) {
	ctx, span := tracer.Start(ctx, "cluster.gateway", trace.WithAttributes(
		attribute.String("op", "list"), attribute.String("gvr", gvr.String())))
	defer span.End()

	for {
		list, err := g.resource(gvr, namespace).List(ctx, opts)
		if err == nil {
			return list, nil
		}
		action, stop := g.classify(err)
		if stop != nil {
			return nil, &Error{Op: "list", GVR: gvr, Status: statusCode(err), Err: stop}
		}
		if action == RetryActionIgnore {
			return &unstructured.UnstructuredList{}, nil
		}
		if err := sleepOrDone(ctx); err != nil {
			return nil, err
		}
	}
}

// Create creates an object.
func (g *Gateway) Create(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return g.call(ctx, "create", gvr, func() (*unstructured.Unstructured, error) {
		return g.resource(gvr, namespace).Create(ctx, obj, metav1.CreateOptions{})
	})
}

// Update replaces an object.
func (g *Gateway) Update(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return g.call(ctx, "update", gvr, func() (*unstructured.Unstructured, error) {
		return g.resource(gvr, namespace).Update(ctx, obj, metav1.UpdateOptions{})
	})
}

// Patch applies a patch of the given type to an object.
func (g *Gateway) Patch(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string, pt types.PatchType, data []byte) (*unstructured.Unstructured, error) {
	return g.call(ctx, "patch", gvr, func() (*unstructured.Unstructured, error) {
		return g.resource(gvr, namespace).Patch(ctx, name, pt, data, metav1.PatchOptions{})
	})
}

// Delete removes an object. A 404 is treated as success.
func (g *Gateway) Delete(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) error {
	return g.DeleteWithOptions(ctx, gvr, namespace, name, metav1.DeleteOptions{})
}

// DeleteWithOptions is Delete with caller-controlled delete options (e.g.
// a zero grace period for an immediate kill). A 404 is treated as
// success.
func (g *Gateway) DeleteWithOptions(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string, opts metav1.DeleteOptions) error {
	_, err := g.call(ctx, "delete", gvr, func() (*unstructured.Unstructured, error) {
		err := g.resource(gvr, namespace).Delete(ctx, name, opts)
		if apierrors.IsNotFound(err) {
			return &unstructured.Unstructured{}, nil
		}
		return nil, err
	})
	return err
}

// Watch opens a watch stream for the given resource.
func (g *Gateway) Watch(ctx context.Context, gvr schema.GroupVersionResource, namespace string, opts metav1.ListOptions) (watch.Interface, error) {
	ctx, span := tracer.Start(ctx, "cluster.gateway", trace.WithAttributes(
		attribute.String("op", "watch"), attribute.String("gvr", gvr.String())))
	defer span.End()
	return g.resource(gvr, namespace).Watch(ctx, opts)
}

var namespaceGVR = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}

// EnsureNamespace creates the namespace if it doesn't already exist.
func (g *Gateway) EnsureNamespace(ctx context.Context, name string) error {
	ns := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata":   map[string]interface{}{"name": name},
	}}

	gw := g.WithRetryPolicy(RetryPolicy{409: RetryActionIgnore, 500: RetryActionRetry})
	_, err := gw.Create(ctx, namespaceGVR, "", ns)
	return err
}

func (g *Gateway) resource(gvr schema.GroupVersionResource, namespace string) dynamic.ResourceInterface {
	if namespace == "" {
		return g.dynamic.Resource(gvr)
	}
	return g.dynamic.Resource(gvr).Namespace(namespace)
}

// call runs fn, retrying or ignoring failures per g.policy, until it
// succeeds, is ignored, or returns a non-absorbed error.
func (g *Gateway) call(ctx context.Context, op string, gvr schema.GroupVersionResource, fn func() (*unstructured.Unstructured, error)) (*unstructured.Unstructured, error) {
	ctx, span := tracer.Start(ctx, "cluster.gateway", trace.WithAttributes(
		attribute.String("op", op), attribute.String("gvr", gvr.String())))
	defer span.End()

	for {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		action, stop := g.classify(err)
		if stop != nil {
			return nil, &Error{Op: op, GVR: gvr, Status: statusCode(err), Err: stop}
		}
		if action == RetryActionIgnore {
			return &unstructured.Unstructured{}, nil
		}

		g.log.Info("retrying cluster call", "op", op, "gvr", gvr.String(), "error", err.Error())
		if werr := sleepOrDone(ctx); werr != nil {
			return nil, werr
		}
	}
}

// classify looks up how the gateway's retry policy wants to handle err.
// Returns (action, nil) when the policy covers the status code, or
// (_, err) when it should propagate unchanged.
func (g *Gateway) classify(err error) (RetryAction, error) {
	code := statusCode(err)
	if action, ok := g.policy[code]; ok {
		return action, nil
	}
	return "", err
}

func statusCode(err error) int32 {
	var status apierrors.APIStatus
	if se, ok := err.(apierrors.APIStatus); ok {
		status = se
	} else if ok := asAPIStatus(err, &status); !ok {
		return 0
	}
	return status.Status().Code
}

func asAPIStatus(err error, target *apierrors.APIStatus) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if se, ok := err.(apierrors.APIStatus); ok {
			*target = se
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func sleepOrDone(ctx context.Context) error {
	timer := time.NewTimer(time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
