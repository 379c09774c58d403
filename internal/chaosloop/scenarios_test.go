/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package chaosloop

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/failure"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
)

func healthyOracleForSpec() *health.Oracle {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{health.CephClusterGVR: "CephClusterList"}
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ceph.rook.io/v1",
		"kind":       "CephCluster",
		"metadata":   map[string]interface{}{"namespace": "ns1", "name": "ns1"},
		"status":     map[string]interface{}{"ceph": map[string]interface{}{"health": "HEALTH_OK"}},
	}}
	dc := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, obj)
	gw := clustergateway.NewForDynamicClient(dc, zap.New(zap.UseDevMode(true)))
	return health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
}

var _ = Describe("Stack repair order", func() {
	It("repairs faults invoked before mitigation in exactly reverse order and empties the stack", func() {
		f1 := &stubFailure{name: "F1"}
		f2 := &stubFailure{name: "F2"}

		l := New(Config{
			MTTF:                         time.Hour,
			MitigationTimeout:            time.Second,
			CheckInterval:                time.Hour,
			AdditionalFailureProbability: 0,
		}, nil, healthyOracleForSpec(), nil, nil, zap.New(zap.UseDevMode(true)))

		l.stack.Push(f1)
		l.stack.Push(f2)
		Expect(l.Stack().InFlightCount()).To(Equal(2))

		var repaired []string
		for _, f := range l.stack.DrainReversed() {
			repaired = append(repaired, f.String())
			Expect(f.Repair(context.Background())).To(Succeed())
		}

		Expect(repaired).To(Equal([]string{"F2", "F1"}))
		Expect(l.Stack().InFlightCount()).To(Equal(0))
		Expect(f1.wasRepaired()).To(BeTrue())
		Expect(f2.wasRepaired()).To(BeTrue())
	})

	It("lets a compound chaos iteration accumulate faults without repairing, then drains them via RepairAll", func() {
		f1 := &stubFailure{name: "F1", mitigated: true}
		types := []failure.FailureType{&stubFailureType{failure: f1}}

		l := New(Config{
			MTTF:                         time.Hour,
			MitigationTimeout:            time.Second,
			CheckInterval:                time.Hour,
			AdditionalFailureProbability: 1, // always compound, never await mitigation
		}, types, healthyOracleForSpec(), nil, nil, zap.New(zap.UseDevMode(true)))

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		_ = l.Run(ctx)

		Expect(l.Stack().InFlightCount()).To(BeNumerically(">", 0))

		Expect(l.RepairAll(context.Background())).To(Succeed())
		Expect(l.Stack().InFlightCount()).To(Equal(0))
	})
})
