/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package event

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var _ = Describe("Dispatcher ordering", func() {
	It("breaks ties among equal deadlines while still honoring an earlier one", func() {
		d := NewDispatcher(zap.New(zap.UseDevMode(true)))
		now := time.Now()

		var order []string
		d.Add(
			NewOneShot(now.Add(10*time.Millisecond), "a", func(ctx context.Context) error {
				order = append(order, "a")
				return nil
			}),
			NewOneShot(now.Add(10*time.Millisecond), "b", func(ctx context.Context) error {
				order = append(order, "b")
				return nil
			}),
			NewOneShot(now.Add(5*time.Millisecond), "c", func(ctx context.Context) error {
				order = append(order, "c")
				return nil
			}),
		)

		Expect(d.Run(context.Background())).To(Succeed())
		Expect(order).To(HaveLen(3))
		Expect(order[0]).To(Equal("c"))
		Expect(order[1:]).To(ConsistOf("a", "b"))
	})

	It("runs a single due OneShot exactly once and empties the queue", func() {
		d := NewDispatcher(zap.New(zap.UseDevMode(true)))
		calls := 0
		d.Add(NewOneShot(time.Now(), "once", func(ctx context.Context) error {
			calls++
			return nil
		}))

		Expect(d.Run(context.Background())).To(Succeed())
		Expect(calls).To(Equal(1))
		Expect(d.Pending()).To(Equal(0))
	})

	It("reschedules a Periodic exactly k times before it stops itself", func() {
		d := NewDispatcher(zap.New(zap.UseDevMode(true)))
		ticks := 0
		d.Add(NewPeriodic(time.Now(), time.Millisecond, "tick", func(ctx context.Context) (bool, error) {
			ticks++
			return ticks < 4, nil
		}))

		Expect(d.Run(context.Background())).To(Succeed())
		Expect(ticks).To(Equal(4))
	})
})
