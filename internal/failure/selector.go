/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package failure

import (
	"context"
	"errors"
	"math/rand"
)

// GetFailure tries every FailureType in random order and returns the
// first Failure instance any of them produces. If every type reports
// NoSafeFailuresError, GetFailure does too.
func GetFailure(ctx context.Context, types []FailureType) (Failure, error) {
	shuffled := make([]FailureType, len(types))
	copy(shuffled, types)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, ft := range shuffled {
		instance, err := ft.Get(ctx)
		if err == nil {
			return instance, nil
		}
		var noSafe *NoSafeFailuresError
		if !errors.As(err, &noSafe) {
			return nil, err
		}
	}
	return nil, &NoSafeFailuresError{Reason: "no registered failure type could produce a safe instance"}
}
