package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalStatus(t *testing.T) {
	terminal := []string{"completed", "failed", "stopped", "cancelled", "error",
		"COMPLETED", "Failed", "STOPPED"}
	for _, status := range terminal {
		assert.True(t, IsTerminalStatus(status), status)
	}

	active := []string{"created", "running", "stopping", "locked", ""}
	for _, status := range active {
		assert.False(t, IsTerminalStatus(status), status)
	}
}

func TestBenchmarkJob_IsTerminal(t *testing.T) {
	job := BenchmarkJob{Status: StatusRunning}
	assert.False(t, job.IsTerminal())

	job.Status = StatusCompleted
	assert.True(t, job.IsTerminal())
}
