/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

type config struct {
	MTTFSeconds              float64 `json:"mttfSeconds"`
	AdditionalFailure        float64 `json:"additionalFailure"`
	MitigationTimeoutSeconds float64 `json:"mitigationTimeoutSeconds"`
	CheckIntervalSeconds     float64 `json:"checkIntervalSeconds"`

	OCSNamespace     string `json:"ocsNamespace"`
	CephClusterName  string `json:"cephClusterName"`
	NodeLabels       string `json:"nodeLabels"`
	DeploymentLabels string `json:"deploymentLabels"`

	BlackoutCron            string  `json:"blackoutCron"`
	BlackoutTZ              string  `json:"blackoutTZ"`
	BlackoutDurationSeconds float64 `json:"blackoutDurationSeconds"`

	DrainTimeoutSeconds float64 `json:"drainTimeoutSeconds"`

	MetricsAddr  string `json:"metricsAddr"`
	OTELEndpoint string `json:"otelEndpoint"`
	DevLog       bool   `json:"devLog"`

	Kubeconfig string `json:"kubeconfig"`
}

func defaultConfig() config {
	return config{
		MTTFSeconds:              3600,
		AdditionalFailure:        0,
		MitigationTimeoutSeconds: 300,
		CheckIntervalSeconds:     30,
		OCSNamespace:             "openshift-storage",
		CephClusterName:          "openshift-storage",
		NodeLabels:               "",
		DeploymentLabels:         "controller=osio",
		BlackoutCron:             "",
		BlackoutTZ:               "UTC",
		BlackoutDurationSeconds:  3600,
		DrainTimeoutSeconds:      120,
		MetricsAddr:              ":8081",
		OTELEndpoint:             "",
		DevLog:                   false,
	}
}

func scanConfigPath(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" || a == "-config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			return a[len("--config="):]
		case len(a) > len("-config=") && a[:len("-config=")] == "-config=":
			return a[len("-config="):]
		}
	}
	return ""
}

func loadConfig(args []string) (config, error) {
	cfg := defaultConfig()

	if path := scanConfigPath(args); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	fs := flag.NewFlagSet("chaos", flag.ExitOnError)
	fs.Float64Var(&cfg.MTTFSeconds, "mttf", cfg.MTTFSeconds, "mean time to failure (s)")
	fs.Float64Var(&cfg.AdditionalFailure, "additional-failure", cfg.AdditionalFailure, "compound-failure probability in [0,1)")
	fs.Float64Var(&cfg.MitigationTimeoutSeconds, "mitigation-timeout", cfg.MitigationTimeoutSeconds, "upper bound on mitigation wait (s)")
	fs.Float64Var(&cfg.CheckIntervalSeconds, "check-interval", cfg.CheckIntervalSeconds, "steady-state re-check period (s)")
	fs.StringVar(&cfg.OCSNamespace, "ocs-namespace", cfg.OCSNamespace, "namespace the storage cluster lives in")
	fs.StringVar(&cfg.CephClusterName, "cephcluster-name", cfg.CephClusterName, "name of the CephCluster object (normally == namespace)")
	fs.StringVar(&cfg.NodeLabels, "node-labels", cfg.NodeLabels, "label selector restricting which nodes may be cordoned")
	fs.StringVar(&cfg.DeploymentLabels, "deployment-labels", cfg.DeploymentLabels, "label selector restricting which deployments may lose a pod")
	fs.StringVar(&cfg.BlackoutCron, "blackout-cron", cfg.BlackoutCron, "cron expression gating new-failure draws; empty disables")
	fs.StringVar(&cfg.BlackoutTZ, "blackout-tz", cfg.BlackoutTZ, "timezone the blackout cron expression is evaluated in")
	fs.Float64Var(&cfg.BlackoutDurationSeconds, "blackout-duration", cfg.BlackoutDurationSeconds, "how long each blackout window occurrence lasts (s)")
	fs.Float64Var(&cfg.DrainTimeoutSeconds, "drain-timeout", cfg.DrainTimeoutSeconds, "max time to wait for graceful fault repair on shutdown (s)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "/metrics listen address, empty disables")
	fs.StringVar(&cfg.OTELEndpoint, "otel-endpoint", cfg.OTELEndpoint, "OTLP/gRPC collector endpoint, empty disables export")
	fs.BoolVar(&cfg.DevLog, "dev-log", cfg.DevLog, "use console-encoded logs instead of JSON")
	fs.StringVar(&cfg.Kubeconfig, "kubeconfig", cfg.Kubeconfig, "path to kubeconfig; empty uses in-cluster config or $KUBECONFIG")
	fs.String("config", "", "optional YAML config overlay")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c config) mttf() time.Duration              { return time.Duration(c.MTTFSeconds * float64(time.Second)) }
func (c config) mitigationTimeout() time.Duration { return time.Duration(c.MitigationTimeoutSeconds * float64(time.Second)) }
func (c config) checkInterval() time.Duration     { return time.Duration(c.CheckIntervalSeconds * float64(time.Second)) }
func (c config) drainTimeout() time.Duration      { return time.Duration(c.DrainTimeoutSeconds * float64(time.Second)) }
func (c config) blackoutDuration() time.Duration  { return time.Duration(c.BlackoutDurationSeconds * float64(time.Second)) }
