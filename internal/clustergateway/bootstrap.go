/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package clustergateway

import (
	"os"

	"github.com/go-logr/logr"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// Bootstrap resolves a REST config the same way controller-runtime based
// binaries do: in-cluster service account config when running inside a
// pod, otherwise the kubeconfig named by --kubeconfig or $KUBECONFIG,
// falling back to ~/.kube/config.
func Bootstrap(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		os.Setenv("KUBECONFIG", kubeconfigPath)
	}
	return config.GetConfig()
}

// New resolves a REST config and builds a Gateway from it in one step.
func New(kubeconfigPath string, log logr.Logger) (*Gateway, error) {
	cfg, err := Bootstrap(kubeconfigPath)
	if err != nil {
		return nil, err
	}
	return NewGateway(cfg, log)
}
