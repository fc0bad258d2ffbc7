// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/danielhkuo/worldprune/handlers"
	"github.com/danielhkuo/worldprune/testutil"
)

func newTestRouter(t *testing.T) (*Router, *bytes.Buffer, *bytes.Buffer) {
	conn, dialect := testutil.SetupTestDB(t)
	testutil.SeedWorld18(t, conn)

	var out, errOut bytes.Buffer
	console := handlers.Console{
		In:  strings.NewReader(""),
		Out: &out,
		Err: &errOut,
	}
	return NewRouter(conn, dialect, testutil.GetTestConfig(), console), &out, &errOut
}

func TestHelpCommand(t *testing.T) {
	r, out, _ := newTestRouter(t)

	if code := r.Dispatch(context.Background(), []string{"help"}); code != handlers.ExitOK {
		t.Errorf("Expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage: worldprune") {
		t.Errorf("Expected usage, got '%s'", out.String())
	}
}

func TestCommandExistence(t *testing.T) {
	r, _, _ := newTestRouter(t)

	// Test that all documented commands are registered
	commands := []string{"delete", "fallback", "schema", "help"}
	for _, name := range commands {
		if _, ok := r.commands[name]; !ok {
			t.Errorf("Command %s not registered", name)
		}
	}
}

func TestDispatch(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, handlers.ExitFailure},
		{"unknown command", []string{"purge", "18"}, handlers.ExitFailure},
		{"dry run", []string{"delete", "18", "--dry-run"}, handlers.ExitOK},
		{"not found", []string{"delete", "404", "--force"}, handlers.ExitNotFound},
		{"no terminal", []string{"delete", "18"}, handlers.ExitAborted},
		{"schema", []string{"schema"}, handlers.ExitOK},
		{"fallback", []string{"fallback", "18"}, handlers.ExitOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newTestRouter(t)
			if got := r.Dispatch(context.Background(), tc.args); got != tc.want {
				t.Errorf("Dispatch(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}

func TestDeleteThenDeleteAgain(t *testing.T) {
	r, out, _ := newTestRouter(t)

	if code := r.Dispatch(context.Background(), []string{"delete", "-f", "18"}); code != handlers.ExitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, out.String())
	}
	if code := r.Dispatch(context.Background(), []string{"delete", "-f", "18"}); code != handlers.ExitNotFound {
		t.Errorf("Expected exit 1 on second delete, got %d", code)
	}
}
