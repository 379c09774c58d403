/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package workload

import "fmt"

// UnhealthyDeploymentError is fatal: a workload's active replica failed to
// come ready within its health check tick. It is meant to propagate out
// of the dispatcher and abort the run.
type UnhealthyDeploymentError struct {
	Namespace string
	Name      string
}

func (e *UnhealthyDeploymentError) Error() string {
	return fmt.Sprintf("deployment %s/%s failed its health check", e.Namespace, e.Name)
}
