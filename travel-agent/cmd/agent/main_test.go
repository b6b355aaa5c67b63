package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestExitWithoutErrorReturns(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := &app{log: zap.New(core)}

	a.exit(context.Background(), "chat", nil)
	a.must(context.Background(), "llm", nil)
	assert.Zero(t, logs.Len())
}

// The failing path runs in a child process because it ends with os.Exit.
func TestExitWithErrorClosesThenFails(t *testing.T) {
	if os.Getenv("AGENT_EXIT_CHILD") == "1" {
		a := &app{log: zap.NewExample()}
		a.exit(context.Background(), "server failed", errors.New("bind: address already in use"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitWithErrorClosesThenFails$")
	cmd.Env = append(os.Environ(), "AGENT_EXIT_CHILD=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), `"msg":"server failed"`)
	assert.Contains(t, string(out), "address already in use")
}
