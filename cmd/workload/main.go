/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/event"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/logcollect"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
	"github.com/ocsmonkey/ocsmonkey/internal/telemetry"
	"github.com/ocsmonkey/ocsmonkey/internal/workload"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	fatal(err)

	log := telemetry.NewLogger(cfg.DevLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracing(ctx, "osio-workload", cfg.OTELEndpoint)
	fatal(err)
	defer shutdownTracer(context.Background())

	metricsServer := metrics.NewServer(cfg.MetricsAddr, log)
	metricsServer.StartAsync()
	defer metricsServer.Stop(context.Background())

	gw, err := clustergateway.New(cfg.Kubeconfig, log)
	fatal(err)

	fatal(gw.EnsureNamespace(ctx, cfg.Namespace))

	healthOracle := health.NewOracle(gw, cfg.OCSNamespace, log)
	watchers := workload.NewWatcherPool(gw, cfg.Namespace, log)

	lifespan := workload.LifecycleConfig{
		Interarrival:         cfg.interarrival(),
		Lifetime:             cfg.lifetime(),
		ActiveTime:           cfg.activeTime(),
		IdleTime:             cfg.idleTime(),
		WorkaroundMinRuntime: true,
	}
	factory := workload.FactoryConfig{
		Namespace:          cfg.Namespace,
		StorageClass:       cfg.StorageClass,
		AccessMode:         cfg.AccessMode,
		Image:              cfg.Image,
		KernelSlots:        cfg.KernelSlots,
		KernelUntarPerHour: cfg.KernelUntarPerHour,
		KernelRmPerHour:    cfg.KernelRmPerHour,
	}

	resumed, err := workload.Resume(ctx, gw, healthOracle, cfg.Namespace, lifespan, watchers, log)
	fatal(err)

	dispatcher := event.NewDispatcher(log)
	dispatcher.Add(resumed...)
	dispatcher.Add(workload.NewCreator(gw, healthOracle, factory, lifespan, watchers, log))

	log.Info("workload runner starting", "namespace", cfg.Namespace, "resumed", len(resumed))

	runErr := dispatcher.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		handleFatal(runErr, cfg, log)
	}

	log.Info("workload runner stopped")
}

// handleFatal gathers whatever diagnostics are registered, then either
// exits or sleeps so an operator can attach and inspect the cluster
// before it's torn down.
func handleFatal(err error, cfg config, log logr.Logger) {
	log.Error(err, "workload runner aborted")

	logcollect.GatherAll(context.Background(), cfg.LogDir, log)

	if cfg.SleepOnError {
		log.Info("sleeping indefinitely per --sleep-on-error")
		select {}
	}
	os.Exit(1)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
