package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
)

func setupTestService(t *testing.T) omrhythm.Service {
	t.Helper()

	tmpDir := t.TempDir()
	svc, err := omrhythm.NewService(
		omrhythm.WithDBPath(filepath.Join(tmpDir, "test_cli.sqlite3")),
		omrhythm.WithExportDir(filepath.Join(tmpDir, "exports")),
		omrhythm.WithLogger(logger.New(logger.Config{Output: io.Discard})),
	)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})
	return svc
}

func TestPendingSetDrainsSorted(t *testing.T) {
	var p pendingSet
	p.add("b.yaml")
	p.add("a.yaml")
	p.add("b.yaml")

	assert.Equal(t, []string{"a.yaml", "b.yaml"}, p.drain())
	assert.Empty(t, p.drain())
}

func TestAbnormalStacks(t *testing.T) {
	a := &models.Analysis{Stacks: []models.StackResult{
		{Index: 1},
		{Index: 2, Abnormal: true},
		{Index: 3, Abnormal: true},
	}}
	assert.Equal(t, []int{2, 3}, abnormalStacks(a))
	assert.Nil(t, abnormalStacks(&models.Analysis{}))
}

func TestPrintAnalysisShowsStripsAndSuspiciousSlots(t *testing.T) {
	a := &models.Analysis{Name: "gap", Stacks: []models.StackResult{{
		Index: 1,
		Measures: []models.MeasureResult{{
			Part: 1,
			Slots: []models.SlotResult{
				{ID: 1, Time: "0", Chords: []int{1}},
				{ID: 2, Time: "1/4", Chords: []int{2}, Suspicious: true},
			},
			Voices: []models.VoiceResult{{
				ID: 1, Family: "HIGH", Chords: []int{1},
				Forwards: []models.Forward{{After: 1, Start: "1/4", Duration: "1/4"}},
				Strip:    "V 1 |Ch#1    |........|1/4",
			}},
			Chords: []models.ChordResult{{ID: 1, Time: "0"}},
		}},
	}}}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	out := buf.String()

	assert.Contains(t, out, "voice 1 HIGH  #1@0")
	assert.Contains(t, out, "forward 1/4 at 1/4")
	assert.Contains(t, out, "V 1 |Ch#1    |........|1/4")
	assert.Contains(t, out, "slot 2 at 1/4 is suspicious")
	assert.NotContains(t, out, "slot 1 at")
}

func TestWatchDirAnalyzesNewFiles(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchDir(ctx, svc, dir, 50*time.Millisecond)
	}()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	data, err := os.ReadFile("testdata/triplet.yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "triplet.yaml"), data, 0644))

	require.Eventually(t, func() bool {
		list, err := svc.ListAnalyses(omrhythm.ListOptions{})
		return err == nil && len(list) > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	list, err := svc.ListAnalyses(omrhythm.ListOptions{})
	require.NoError(t, err)
	for _, s := range list {
		assert.Equal(t, "triplet", s.Name)
	}
}
