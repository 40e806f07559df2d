// ABOUTME: Integration tests for full workflow
// ABOUTME: Builds the binary and drives start, status, lookup, and stop across processes

package test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary and runs an agent process")
	}

	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}

	tmpDir := t.TempDir()
	binary := filepath.Join(tmpDir, "beacon")
	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/beacon")
	buildCmd.Dir = projectRoot
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to build: %v\nOutput: %s", err, buildOutput)
	}

	env := append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(tmpDir, "config"),
		"XDG_DATA_HOME="+filepath.Join(tmpDir, "data"),
		"BEACON_BACKEND=sqlite",
		"BEACON_INTERVAL=100ms",
		"NO_COLOR=1",
	)

	run := func(args ...string) (string, error) {
		cmd := exec.Command(binary, args...)
		cmd.Env = env
		output, err := cmd.CombinedOutput()
		return string(output), err
	}

	// The id is stable until stop
	output, err := run("id")
	if err != nil {
		t.Fatalf("Failed to get id: %v\n%s", err, output)
	}
	id := regexp.MustCompile(`\d{8}`).FindString(output)
	if id == "" {
		t.Fatalf("Expected an 8-digit id, got %q", output)
	}

	// Start an agent in the background
	var agentOut bytes.Buffer
	agent := exec.Command(binary, "start", "--source", "static:41.8781,-87.6298")
	agent.Env = env
	agent.Stdout = &agentOut
	agent.Stderr = &agentOut
	if err := agent.Start(); err != nil {
		t.Fatalf("Failed to start agent: %v", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- agent.Wait() }()
	defer func() { _ = agent.Process.Kill() }()

	// Wait for the first report to land
	deadline := time.Now().Add(10 * time.Second)
	for {
		output, err = run("lookup", id)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("No report for %s: %s\nagent output:\n%s", id, output, agentOut.String())
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !strings.Contains(output, "41.87810") {
		t.Errorf("Expected latitude in lookup output, got %q", output)
	}

	// Status shows the agent
	output, err = run("status")
	if err != nil {
		t.Fatalf("Failed to get status: %v\n%s", err, output)
	}
	if !strings.Contains(output, "ID: "+id+" | Active") {
		t.Errorf("Expected active status line, got %q", output)
	}

	// List includes the tracker
	output, err = run("list")
	if err != nil {
		t.Fatalf("Failed to list: %v\n%s", err, output)
	}
	if !strings.Contains(output, id) {
		t.Errorf("Expected %s in list, got %q", id, output)
	}

	// Stop retires the id and ends the agent
	output, err = run("stop")
	if err != nil {
		t.Fatalf("Failed to stop: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Stopped reporting as "+id) {
		t.Errorf("Expected stop message, got %q", output)
	}
	select {
	case <-exited:
	case <-time.After(15 * time.Second):
		t.Fatalf("Agent did not exit\n%s", agentOut.String())
	}

	// The document is gone
	output, err = run("lookup", id)
	if err == nil {
		t.Errorf("Expected lookup to fail after stop, got %q", output)
	}

	// A new id was drawn
	output, err = run("id")
	if err != nil {
		t.Fatalf("Failed to get id: %v\n%s", err, output)
	}
	if strings.Contains(output, id) {
		t.Errorf("Expected a new id after stop, got %q", output)
	}
}
