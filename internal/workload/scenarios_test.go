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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ocsmonkey/ocsmonkey/internal/health"
)

var _ = Describe("Lifecycle annotation invariant", func() {
	It("holds after the initial tick: next-time is the min of the three, next-action names the winner, replicas stays valid", func() {
		now := time.Now()
		destroyAt := now.Add(1000 * time.Second)
		dep := newOwnedDeployment("ns1", "d1", 1, 1, map[string]string{
			AnnotationActive:    formatSeconds(60 * time.Second),
			AnnotationIdle:      formatSeconds(30 * time.Second),
			AnnotationDestroyAt: formatEpoch(destroyAt),
			AnnotationPVC:       "pvc-1",
		})
		fakeGW := newFakeGatewayFor(dep)
		oracle := health.NewOracle(fakeGW, "ns1", zap.New(zap.UseDevMode(true)))
		lc := NewLifecycle(fakeGW, oracle, "ns1", "d1", testLifespan(), nil, zap.New(zap.UseDevMode(true)))
		lc.when = now

		_, err := lc.Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())

		updated, err := fakeGW.Get(context.Background(), deploymentGVR, "ns1", "d1")
		Expect(err).NotTo(HaveOccurred())

		annotations, _, _ := unstructured.NestedStringMap(updated.Object, "metadata", "annotations")
		destroyAtGot, err := parseEpoch(annotations[AnnotationDestroyAt])
		Expect(err).NotTo(HaveOccurred())
		idleAtGot, err := parseEpoch(annotations[AnnotationIdleAt])
		Expect(err).NotTo(HaveOccurred())
		healthAtGot, err := parseEpoch(annotations[AnnotationHealthAt])
		Expect(err).NotTo(HaveOccurred())
		nextTimeGot, err := parseEpoch(annotations[AnnotationNextTime])
		Expect(err).NotTo(HaveOccurred())

		wantNextTime, wantNextAction := nextDue(destroyAtGot, idleAtGot, healthAtGot)
		Expect(nextTimeGot).To(BeTemporally("~", wantNextTime, time.Millisecond))
		Expect(annotations[AnnotationNextAction]).To(Equal(string(wantNextAction)))

		replicas, _, _ := unstructured.NestedInt64(updated.Object, "spec", "replicas")
		Expect(replicas).To(Or(Equal(int64(0)), Equal(int64(1))))
	})

	It("holds across an idle/active flip tick", func() {
		now := time.Now()
		past := now.Add(-time.Second)
		farFuture := now.Add(time.Hour)
		dep := newOwnedDeployment("ns1", "d1", 0, 0, map[string]string{
			AnnotationActive:     formatSeconds(time.Minute),
			AnnotationIdle:       formatSeconds(time.Minute),
			AnnotationDestroyAt:  formatEpoch(farFuture),
			AnnotationIdleAt:     formatEpoch(past),
			AnnotationHealthAt:   formatEpoch(farFuture),
			AnnotationNextTime:   formatEpoch(past),
			AnnotationNextAction: string(NextActionIdle),
			AnnotationPVC:        "pvc-1",
		})
		fakeGW := newFakeGatewayFor(dep)
		oracle := health.NewOracle(fakeGW, "ns1", zap.New(zap.UseDevMode(true)))
		lc := NewLifecycle(fakeGW, oracle, "ns1", "d1", testLifespan(), nil, zap.New(zap.UseDevMode(true)))
		lc.when = now

		_, err := lc.Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())

		updated, err := fakeGW.Get(context.Background(), deploymentGVR, "ns1", "d1")
		Expect(err).NotTo(HaveOccurred())

		replicas, _, _ := unstructured.NestedInt64(updated.Object, "spec", "replicas")
		Expect(replicas).To(Equal(int64(1)))

		annotations, _, _ := unstructured.NestedStringMap(updated.Object, "metadata", "annotations")
		destroyAtGot, _ := parseEpoch(annotations[AnnotationDestroyAt])
		idleAtGot, _ := parseEpoch(annotations[AnnotationIdleAt])
		healthAtGot, _ := parseEpoch(annotations[AnnotationHealthAt])
		nextTimeGot, _ := parseEpoch(annotations[AnnotationNextTime])

		wantNextTime, wantNextAction := nextDue(destroyAtGot, idleAtGot, healthAtGot)
		Expect(nextTimeGot).To(BeTemporally("~", wantNextTime, time.Millisecond))
		Expect(annotations[AnnotationNextAction]).To(Equal(string(wantNextAction)))
	})
})
