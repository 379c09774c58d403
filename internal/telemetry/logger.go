/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry constructs the root logr.Logger and OpenTelemetry
// tracer provider shared by cmd/workload and cmd/chaos.
package telemetry

import (
	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// NewLogger builds the root logger. devMode switches from JSON production
// encoding to zap's human-readable console encoding.
func NewLogger(devMode bool) logr.Logger {
	return zap.New(zap.UseDevMode(devMode))
}
