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

	"github.com/ocsmonkey/ocsmonkey/internal/blackout"
	"github.com/ocsmonkey/ocsmonkey/internal/chaosloop"
	"github.com/ocsmonkey/ocsmonkey/internal/clustergateway"
	"github.com/ocsmonkey/ocsmonkey/internal/failure"
	"github.com/ocsmonkey/ocsmonkey/internal/health"
	"github.com/ocsmonkey/ocsmonkey/internal/metrics"
	"github.com/ocsmonkey/ocsmonkey/internal/shutdown"
	"github.com/ocsmonkey/ocsmonkey/internal/telemetry"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	fatal(err)

	log := telemetry.NewLogger(cfg.DevLog)

	if cfg.CephClusterName != "" && cfg.CephClusterName != cfg.OCSNamespace {
		log.Info("cephcluster-name differs from ocs-namespace; the health oracle looks up the CephCluster by namespace name and ignores cephcluster-name",
			"cephClusterName", cfg.CephClusterName, "ocsNamespace", cfg.OCSNamespace)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracing(ctx, "osio-chaos", cfg.OTELEndpoint)
	fatal(err)
	defer shutdownTracer(context.Background())

	metricsServer := metrics.NewServer(cfg.MetricsAddr, log)
	metricsServer.StartAsync()
	defer metricsServer.Stop(context.Background())

	gw, err := clustergateway.New(cfg.Kubeconfig, log)
	fatal(err)

	healthOracle := health.NewOracle(gw, cfg.OCSNamespace, log)

	blackoutWindow, err := blackout.NewWindow(cfg.BlackoutCron, cfg.blackoutDuration(), cfg.BlackoutTZ)
	fatal(err)

	types := []failure.FailureType{
		failure.NewDeletePodType(gw, healthOracle, cfg.OCSNamespace, parseLabels(cfg.DeploymentLabels)),
		failure.NewCordonNodeType(gw, parseLabels(cfg.NodeLabels)),
	}

	loop := chaosloop.New(chaosloop.Config{
		MTTF:                         cfg.mttf(),
		AdditionalFailureProbability: cfg.AdditionalFailure,
		MitigationTimeout:            cfg.mitigationTimeout(),
		CheckInterval:                cfg.checkInterval(),
	}, types, healthOracle, blackoutWindow, nil, log)

	coordinator := shutdown.NewCoordinator(loop.Stack(), cfg.drainTimeout(), log)
	coordinator.RegisterRun("chaos-loop", func() {
		if err := loop.RepairAll(context.Background()); err != nil {
			log.Error(err, "force-repair on shutdown failed")
		}
	})

	log.Info("chaos loop starting", "ocsNamespace", cfg.OCSNamespace, "mttf", cfg.mttf())

	runErr := loop.Run(ctx)
	coordinator.WaitForDrain()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error(runErr, "chaos loop aborted")
		os.Exit(1)
	}

	log.Info("chaos loop stopped")
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
