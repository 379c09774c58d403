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

// config holds every flag this binary accepts. YAML tags let --config
// overlay a file onto the flag defaults before flag.Parse runs.
type config struct {
	Namespace    string `json:"namespace"`
	StorageClass string `json:"storageClass"`
	AccessMode   string `json:"accessMode"`

	InterarrivalSeconds float64 `json:"interarrivalSeconds"`
	LifetimeSeconds     float64 `json:"lifetimeSeconds"`
	ActiveTimeSeconds   float64 `json:"activeTimeSeconds"`
	IdleTimeSeconds     float64 `json:"idleTimeSeconds"`

	KernelSlots        int     `json:"kernelSlots"`
	KernelUntarPerHour float64 `json:"kernelUntarPerHour"`
	KernelRmPerHour    float64 `json:"kernelRmPerHour"`
	Image              string  `json:"image"`

	LogDir       string `json:"logDir"`
	OC           string `json:"oc"`
	OCSNamespace string `json:"ocsNamespace"`
	SleepOnError bool   `json:"sleepOnError"`

	MetricsAddr  string `json:"metricsAddr"`
	OTELEndpoint string `json:"otelEndpoint"`
	DevLog       bool   `json:"devLog"`

	Kubeconfig string `json:"kubeconfig"`
}

func defaultConfig() config {
	return config{
		Namespace:           "default",
		StorageClass:        "",
		AccessMode:          "RWO",
		InterarrivalSeconds: 60,
		LifetimeSeconds:     86400,
		ActiveTimeSeconds:   600,
		IdleTimeSeconds:     600,
		KernelSlots:         0,
		KernelUntarPerHour:  0,
		KernelRmPerHour:     0,
		Image:               "quay.io/ocsmonkey/workload:latest",
		LogDir:              "/tmp/osio-logs",
		OC:                  "oc",
		OCSNamespace:        "openshift-storage",
		SleepOnError:        false,
		MetricsAddr:         ":8080",
		OTELEndpoint:        "",
		DevLog:              false,
	}
}

// scanConfigPath looks for --config/-config ahead of the full flag parse,
// so a YAML overlay can supply defaults that the real flag.Parse pass then
// allows the command line to override.
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

	fs := flag.NewFlagSet("workload", flag.ExitOnError)
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "target namespace")
	fs.StringVar(&cfg.StorageClass, "storageclass", cfg.StorageClass, "storage class for PVCs")
	fs.StringVar(&cfg.AccessMode, "accessmode", cfg.AccessMode, "PVC access mode (RWO or RWM)")
	fs.Float64Var(&cfg.InterarrivalSeconds, "osio-interarrival", cfg.InterarrivalSeconds, "mean workload interarrival time (s)")
	fs.Float64Var(&cfg.LifetimeSeconds, "osio-lifetime", cfg.LifetimeSeconds, "mean workload lifetime (s)")
	fs.Float64Var(&cfg.ActiveTimeSeconds, "osio-active-time", cfg.ActiveTimeSeconds, "mean active-period duration (s)")
	fs.Float64Var(&cfg.IdleTimeSeconds, "osio-idle-time", cfg.IdleTimeSeconds, "mean idle-period duration (s)")
	fs.IntVar(&cfg.KernelSlots, "osio-kernel-slots", cfg.KernelSlots, "in-pod workload kernel slot count")
	fs.Float64Var(&cfg.KernelUntarPerHour, "osio-kernel-untar", cfg.KernelUntarPerHour, "in-pod workload untars/hour")
	fs.Float64Var(&cfg.KernelRmPerHour, "osio-kernel-rm", cfg.KernelRmPerHour, "in-pod workload removals/hour")
	fs.StringVar(&cfg.Image, "osio-image", cfg.Image, "workload container image")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for collected diagnostic logs")
	fs.StringVar(&cfg.OC, "oc", cfg.OC, "oc binary path, for future log collectors")
	fs.StringVar(&cfg.OCSNamespace, "ocs-namespace", cfg.OCSNamespace, "namespace the storage cluster lives in")
	fs.BoolVar(&cfg.SleepOnError, "sleep-on-error", cfg.SleepOnError, "sleep indefinitely after a fatal error, instead of exiting")
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

func (c config) interarrival() time.Duration { return time.Duration(c.InterarrivalSeconds * float64(time.Second)) }
func (c config) lifetime() time.Duration     { return time.Duration(c.LifetimeSeconds * float64(time.Second)) }
func (c config) activeTime() time.Duration   { return time.Duration(c.ActiveTimeSeconds * float64(time.Second)) }
func (c config) idleTime() time.Duration     { return time.Duration(c.IdleTimeSeconds * float64(time.Second)) }
