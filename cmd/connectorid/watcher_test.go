package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MojoAuth/connector-identity/internal/identity"
	"github.com/MojoAuth/connector-identity/pkg/config"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Ledger.Enabled = false
	cfg.Sentry.Enabled = false

	var logs bytes.Buffer
	a, err := newApp(context.Background(), cfg, &logs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close() })
	return a, &logs
}

// passSummaries returns the "registration pass finished" records in order.
func passSummaries(t *testing.T, logs *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(logs.Bytes()))
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec["msg"] == "registration pass finished" {
			out = append(out, rec)
		}
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestFileWatcher_PassWaitsForOpenWindow(t *testing.T) {
	a, logs := newTestApp(t)
	file := writeFile(t, t.TempDir(), "connectors.yaml", "typePrefix: a\n")
	w := newFileWatcher(a, []string{file})
	ctx := context.Background()

	w.requestPass(ctx)

	// Registering the same config now opens a window whose clear is queued
	// behind the pass.
	configs, err := readConfigFile(file)
	require.NoError(t, err)
	duplicates := a.registerAll(ctx, configs, func(string, identity.InstanceID, error) {})
	require.Zero(t, duplicates)
	require.Equal(t, 1, a.tracker.Size())
	require.Equal(t, 2, a.loop.Pending())

	// The pass sees the open window and re-queues itself; the clear runs in
	// the same tick.
	a.loop.RunTick()
	assert.Empty(t, passSummaries(t, logs))
	assert.Equal(t, 0, a.tracker.Size())
	assert.Equal(t, 1, a.loop.Pending())

	a.loop.RunTick()
	summaries := passSummaries(t, logs)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0]["configs"])
	assert.EqualValues(t, 0, summaries[0]["duplicates"])
	assert.Equal(t, 1, a.tracker.Size())

	a.loop.RunTick()
	assert.Equal(t, 0, a.tracker.Size())
	assert.Equal(t, 0, a.loop.Pending())
}

func TestFileWatcher_RequestPassCoalesces(t *testing.T) {
	a, logs := newTestApp(t)
	file := writeFile(t, t.TempDir(), "connectors.yaml", "- typePrefix: a\n- typePrefix: b\n")
	w := newFileWatcher(a, []string{file})
	ctx := context.Background()

	w.requestPass(ctx)
	w.requestPass(ctx)
	w.requestPass(ctx)
	assert.Equal(t, 1, a.loop.Pending())

	a.loop.Drain(10)

	summaries := passSummaries(t, logs)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 2, summaries[0]["configs"])
	assert.EqualValues(t, 0, summaries[0]["duplicates"])

	// A later change after the window closed registers cleanly again.
	w.requestPass(ctx)
	a.loop.Drain(10)

	summaries = passSummaries(t, logs)
	require.Len(t, summaries, 2)
	assert.EqualValues(t, 2, summaries[1]["pass"])
	assert.EqualValues(t, 0, summaries[1]["duplicates"])
}

func TestFileWatcher_Watched(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "connectors.yaml", "typePrefix: a\n")
	w := newFileWatcher(a, []string{file})

	assert.True(t, w.watched(file))
	assert.False(t, w.watched(writeFile(t, dir, "other.yaml", "typePrefix: b\n")))
}
