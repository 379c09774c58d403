/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package chaosloop drives the randomized fault-injection process: select a
// safe fault, invoke it, await SUT mitigation (possibly compounding with
// further faults first), repair the stack of outstanding faults in reverse
// order, then wait for the next failure to become due.
package chaosloop

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ocsmonkey/ocsmonkey/internal/blackout"
	"github.com/ocsmonkey/ocsmonkey/internal/failure"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
)

var tracer = otel.Tracer("internal/chaosloop")

// MitigationTimeoutError is a fatal error: the SUT did not recover from an
// invoked fault, or did not return to overall health, within the configured
// deadline.
type MitigationTimeoutError struct {
	Fault   string
	Timeout time.Duration
}

func (e *MitigationTimeoutError) Error() string {
	return fmt.Sprintf("mitigation timeout after %s waiting on %s", e.Timeout, e.Fault)
}

// SteadyStateFunc is a pluggable steady-state hypothesis check, invoked
// between mitigation polls and on the periodic check interval while waiting
// for the next failure. The default implementation always returns true.
type SteadyStateFunc func(ctx context.Context) (bool, error)

func alwaysSteady(ctx context.Context) (bool, error) { return true, nil }

// Config parameterizes a Loop.
type Config struct {
	// MTTF is the mean time to the next failure draw.
	MTTF time.Duration
	// AdditionalFailureProbability, once a fault was pushed this
	// iteration, is the chance the loop compounds it with another fault
	// before awaiting mitigation of either.
	AdditionalFailureProbability float64
	// MitigationTimeout bounds both per-fault mitigation waits and the
	// post-repair cluster health recheck.
	MitigationTimeout time.Duration
	// CheckInterval is how often steady-state verification runs while
	// waiting for the next failure to become due.
	CheckInterval time.Duration
}

// Loop is the fault-injection driver.
type Loop struct {
	cfg      Config
	types    []failure.FailureType
	health   *health.Oracle
	blackout *blackout.Window
	steady   SteadyStateFunc
	stack    *FaultStack
	log      logr.Logger
}

// New creates a Loop. blackoutWindow may be nil to disable blackout gating.
// steady may be nil to use the default always-true steady-state check.
func New(cfg Config, types []failure.FailureType, healthOracle *health.Oracle, blackoutWindow *blackout.Window, steady SteadyStateFunc, log logr.Logger) *Loop {
	if steady == nil {
		steady = alwaysSteady
	}
	return &Loop{
		cfg:      cfg,
		types:    types,
		health:   healthOracle,
		blackout: blackoutWindow,
		steady:   steady,
		stack:    &FaultStack{},
		log:      log.WithName("chaosloop"),
	}
}

// Stack exposes the outstanding-fault stack for shutdown coordination.
func (l *Loop) Stack() *FaultStack { return l.stack }

// RepairAll is repairAll exported for the shutdown coordinator's
// force-completion path: on a drain timeout, whatever faults are still on
// the stack get repaired immediately rather than left on the cluster.
func (l *Loop) RepairAll(ctx context.Context) error {
	return l.repairAll(ctx)
}

// Run drives fault injection until ctx is cancelled or a fatal error
// occurs (NoSafeFailures is swallowed each iteration; MitigationTimeoutError
// and any RPC error propagate).
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		invoked, err := l.tryInvoke(ctx)
		if err != nil {
			return err
		}

		if invoked != nil && rand.Float64() < l.cfg.AdditionalFailureProbability {
			l.log.Info("compounding failure without awaiting mitigation", "fault", invoked.String())
			continue
		}

		if invoked != nil {
			if err := l.settle(ctx, invoked); err != nil {
				return err
			}
		}

		if _, err := l.steady(ctx); err != nil {
			return fmt.Errorf("steady-state check before repair: %w", err)
		}

		if err := l.repairAll(ctx); err != nil {
			return err
		}

		if _, err := l.steady(ctx); err != nil {
			return fmt.Errorf("steady-state check after repair: %w", err)
		}

		healthy, err := l.health.AwaitHealthy(ctx, l.cfg.MitigationTimeout)
		if err != nil {
			return fmt.Errorf("cluster health recheck after repair: %w", err)
		}
		if !healthy {
			return &MitigationTimeoutError{Fault: "cluster health recovery", Timeout: l.cfg.MitigationTimeout}
		}

		if err := l.awaitNextFailure(ctx); err != nil {
			return err
		}
	}
}

// tryInvoke selects and invokes one safe fault, or returns (nil, nil) if
// none were safe this round or the blackout window is active.
func (l *Loop) tryInvoke(ctx context.Context) (failure.Failure, error) {
	if l.blackout.Active(time.Now()) {
		l.log.V(1).Info("blackout window active, not starting a new fault")
		return nil, nil
	}

	f, err := failure.GetFailure(ctx, l.types)
	if err != nil {
		var noSafe *failure.NoSafeFailuresError
		if errors.As(err, &noSafe) {
			l.log.V(1).Info("no safe failure this round", "reason", noSafe.Reason)
			return nil, nil
		}
		return nil, fmt.Errorf("select failure: %w", err)
	}

	ctx, span := tracer.Start(ctx, "chaos.failure.invoke", trace.WithAttributes(
		attribute.String("failure.kind", f.String()),
	))
	defer span.End()

	if err := f.Invoke(ctx); err != nil {
		return nil, fmt.Errorf("invoke %s: %w", f.String(), err)
	}
	l.stack.Push(f)
	metrics.FaultsInvokedTotal.WithLabelValues(f.String()).Inc()
	l.log.Info("invoked fault", "fault", f.String())
	return f, nil
}

// settle awaits mitigation of the most recently invoked fault, returning a
// MitigationTimeoutError if the SUT does not recover in time.
func (l *Loop) settle(ctx context.Context, f failure.Failure) error {
	ctx, span := tracer.Start(ctx, "chaos.failure.mitigate", trace.WithAttributes(
		attribute.String("failure.kind", f.String()),
	))
	defer span.End()

	start := time.Now()
	mitigated, err := l.awaitMitigation(ctx, f, l.cfg.MitigationTimeout)
	metrics.MitigationWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("await mitigation of %s: %w", f.String(), err)
	}
	if !mitigated {
		return &MitigationTimeoutError{Fault: f.String(), Timeout: l.cfg.MitigationTimeout}
	}
	return nil
}

// awaitMitigation polls fault.Mitigated in bounded 10s increments (or
// whatever remains of timeout, if shorter) until it reports mitigated,
// running a steady-state check between unsuccessful attempts.
func (l *Loop) awaitMitigation(ctx context.Context, f failure.Failure, timeout time.Duration) (bool, error) {
	const pollInterval = 10 * time.Second
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		attempt := pollInterval
		if remaining < attempt {
			attempt = remaining
		}

		mitigated, err := f.Mitigated(ctx, attempt)
		if err != nil {
			return false, err
		}
		if mitigated {
			return true, nil
		}

		if _, err := l.steady(ctx); err != nil {
			return false, err
		}

		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
}

// repairAll drains the outstanding-fault stack, repairing newest-first.
func (l *Loop) repairAll(ctx context.Context) error {
	for _, f := range l.stack.DrainReversed() {
		ctx, span := tracer.Start(ctx, "chaos.failure.repair", trace.WithAttributes(
			attribute.String("failure.kind", f.String()),
		))
		err := f.Repair(ctx)
		span.End()
		if err != nil {
			return fmt.Errorf("repair %s: %w", f.String(), err)
		}
		l.log.Info("repaired fault", "fault", f.String())
	}
	return nil
}

// awaitNextFailure draws a per-second memoryless failure time, gated by the
// blackout window, running a steady-state check on every CheckInterval.
func (l *Loop) awaitNextFailure(ctx context.Context) error {
	mttfSeconds := l.cfg.MTTF.Seconds()
	if mttfSeconds <= 0 {
		return fmt.Errorf("mttf must be positive, got %s", l.cfg.MTTF)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCheck time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if lastCheck.IsZero() || now.Sub(lastCheck) >= l.cfg.CheckInterval {
				if _, err := l.steady(ctx); err != nil {
					return fmt.Errorf("steady-state check while awaiting next failure: %w", err)
				}
				lastCheck = now
			}

			if l.blackout.Active(now) {
				continue
			}

			if rand.Float64() < 1/mttfSeconds {
				return nil
			}
		}
	}
}
