// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/worldprune/executor"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/resolver"
)

func TestClassify(t *testing.T) {
	notFound := &resolver.ResolutionError{Type: models.TypeWorld, ID: 18, Err: resolver.ErrRootNotFound}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"root missing", notFound, ExitNotFound},
		{"root gone by execute", fmt.Errorf("execute: %w", notFound), ExitNotFound},
		{"resolve failed", &resolver.ResolutionError{Type: models.TypeWorld, ID: 18, Err: errors.New("disk I/O error")}, ExitFailure},
		{"interrupted", &executor.ExecutionError{RootID: 18, Type: models.TypeWorld, Err: context.Canceled}, ExitAborted},
		{"execution", &executor.ExecutionError{RootID: 18, Type: models.TypeSimulationState, Err: executor.ErrNotClosed}, ExitFailure},
		{"relaxation", &executor.RelaxationError{RootID: 18, Type: models.TypeSimulationState, Err: errors.New("permission denied")}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := classify(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
