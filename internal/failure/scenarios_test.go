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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ocsmonkey/ocsmonkey/internal/health"
)

var _ = Describe("Selector safety", func() {
	It("never returns a fault whose source deployment was degraded at selection time", func() {
		gw := newFakeGatewayFor(
			newDeployment("ns1", "d1", map[string]string{"app": "sut"}, 3, 3),
			newDeployment("ns1", "d2", map[string]string{"app": "sut"}, 3, 2), // degraded
			newPod("ns1", "p1", map[string]string{"app": "sut"}),
			newCephClusterHealthy("ns1"),
		)
		oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
		ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

		_, err := ft.Get(context.Background())

		var noSafe *NoSafeFailuresError
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(noSafe))
	})

	It("selects a safe deployment once every matched deployment is fully ready", func() {
		gw := newFakeGatewayFor(
			newDeployment("ns1", "d1", map[string]string{"app": "sut"}, 2, 2),
			newPod("ns1", "p1", map[string]string{"app": "sut"}),
			newPod("ns1", "p2", map[string]string{"app": "sut"}),
			newCephClusterHealthy("ns1"),
		)
		oracle := health.NewOracle(gw, "ns1", zap.New(zap.UseDevMode(true)))
		ft := NewDeletePodType(gw, oracle, "ns1", map[string]string{"app": "sut"})

		f, err := ft.Get(context.Background())

		Expect(err).NotTo(HaveOccurred())
		dp, ok := f.(*DeletePod)
		Expect(ok).To(BeTrue())
		Expect(dp.deploymentName).To(Equal("d1"))
	})
})
