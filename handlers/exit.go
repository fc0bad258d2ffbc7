// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/worldprune/executor"
	"github.com/danielhkuo/worldprune/models"
	"github.com/danielhkuo/worldprune/report"
	"github.com/danielhkuo/worldprune/resolver"
)

// Exit statuses
const (
	ExitOK       = 0
	ExitNotFound = 1
	ExitFailure  = 2
	ExitAborted  = 3
)

// fail writes err for the operator and returns the exit status for it
func fail(c Console, f report.Format, err error) int {
	code, resp := classify(err)

	slog.Error("command failed",
		"error", err,
		"type", resp.Type,
		"ids", resp.IDs,
		"exit_code", code,
	)

	if werr := report.Error(c.Out, f, resp); werr != nil {
		slog.Error("failed to write error", "error", werr)
	}
	return code
}

func classify(err error) (int, models.ErrorResponse) {
	var (
		resErr  *resolver.ResolutionError
		execErr *executor.ExecutionError
		relErr  *executor.RelaxationError
	)

	switch {
	case errors.Is(err, resolver.ErrRootNotFound) && errors.As(err, &resErr):
		return ExitNotFound, models.ErrorResponse{
			Error:   "not found",
			Message: fmt.Sprintf("%s %d does not exist", resErr.Type, resErr.ID),
			Type:    string(resErr.Type),
			IDs:     []int64{resErr.ID},
		}

	case errors.Is(err, context.Canceled):
		resp := models.ErrorResponse{
			Error:   "aborted",
			Message: "interrupted; nothing was deleted",
		}
		if errors.As(err, &execErr) {
			resp.Type = string(execErr.Type)
			resp.IDs = execErr.IDs
		}
		return ExitAborted, resp

	case errors.As(err, &resErr):
		return ExitFailure, models.ErrorResponse{
			Error:   "resolution failed",
			Message: err.Error(),
			Type:    string(resErr.Type),
			IDs:     []int64{resErr.ID},
			Hint:    "nothing was deleted",
		}

	case errors.As(err, &relErr):
		return ExitFailure, models.ErrorResponse{
			Error:   "relaxation failed",
			Message: err.Error(),
			Type:    string(relErr.Type),
			IDs:     relErr.IDs,
			Hint:    relErr.Hint(),
		}

	case errors.As(err, &execErr):
		return ExitFailure, models.ErrorResponse{
			Error:   "execution failed",
			Message: err.Error(),
			Type:    string(execErr.Type),
			IDs:     execErr.IDs,
			Hint:    execErr.Hint(),
		}

	default:
		return ExitFailure, models.ErrorResponse{
			Error:   "failed",
			Message: err.Error(),
		}
	}
}

// usageError reports a bad command line
func usageError(c Console, f report.Format, format string, args ...any) int {
	return fail(c, f, fmt.Errorf(format, args...))
}
