/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package metrics

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Fault and lifecycle counters", func() {
	It("labels faults invoked by type and counts each one independently", func() {
		before := testutil.ToFloat64(FaultsInvokedTotal.WithLabelValues("cordon-node"))

		FaultsInvokedTotal.WithLabelValues("cordon-node").Inc()
		FaultsInvokedTotal.WithLabelValues("cordon-node").Inc()
		FaultsInvokedTotal.WithLabelValues("delete-pod").Inc()

		Expect(testutil.ToFloat64(FaultsInvokedTotal.WithLabelValues("cordon-node"))).To(Equal(before + 2))
	})

	It("tracks the outstanding-fault gauge through a push/repair cycle", func() {
		FaultsOutstanding.Set(0)
		FaultsOutstanding.Inc()
		FaultsOutstanding.Inc()
		Expect(testutil.ToFloat64(FaultsOutstanding)).To(Equal(2.0))

		FaultsOutstanding.Set(0)
		Expect(testutil.ToFloat64(FaultsOutstanding)).To(Equal(0.0))
	})

	It("counts lifecycle ticks by action", func() {
		before := testutil.ToFloat64(WorkloadsLifecycleTicksTotal.WithLabelValues("destroy"))

		WorkloadsLifecycleTicksTotal.WithLabelValues("destroy").Inc()

		Expect(testutil.ToFloat64(WorkloadsLifecycleTicksTotal.WithLabelValues("destroy"))).To(Equal(before + 1))
	})
})
