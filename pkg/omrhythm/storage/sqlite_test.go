//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/models"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_omrhythm.sqlite3")
	t.Setenv("OMRHYTHM_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func sampleAnalysis(name string, abnormal bool) *models.Analysis {
	return &models.Analysis{
		Name:     name,
		Source:   name + ".yaml",
		Abnormal: abnormal,
		Stacks: []models.StackResult{
			{
				Index:         1,
				TimeSignature: "1/4",
				Expected:      "1/4",
				Actual:        "1/4",
				Abnormal:      abnormal,
				EmptyStaves:   []models.EmptyStaff{{Part: 1, Staff: 2}},
				Measures: []models.MeasureResult{
					{
						Stack:    1,
						Part:     1,
						Expected: "1/4",
						Slots: []models.SlotResult{
							{ID: 1, Time: "0", XOffset: 20, Chords: []int{1}},
							{ID: 2, Time: "1/12", XOffset: 50, Chords: []int{2}, Suspicious: true},
						},
						Voices: []models.VoiceResult{
							{
								ID: 1, Family: "HIGH", Chords: []int{1, 2}, Termination: "0", TimeSignature: "1/4",
								Duration: "1/6", DurationSansTuplet: "1/4",
								Forwards: []models.Forward{{After: 2, Start: "1/6", Duration: "1/12"}},
								Strip:    "V 1 |Ch#1    |Ch#2    |1/6",
							},
						},
						Chords: []models.ChordResult{
							{ID: 1, Kind: "head", Staff: 1, Voice: 1, Slot: 1, Time: "0", Duration: "1/12", Tuplet: 1, Keys: []int{71}},
							{ID: 2, Kind: "head", Staff: 1, Voice: 1, Slot: 2, Time: "1/12", Duration: "1/12", Tuplet: 1, Keys: []int{72}},
						},
						Tuplets: []models.TupletResult{
							{ID: 1, Shape: "TUPLET_THREE", Implicit: true, Chords: []int{1, 2}, X: 14, Y: 105, W: 72, H: 20},
						},
					},
				},
			},
			{Index: 2, Expected: "1/4", Measures: []models.MeasureResult{{Stack: 2, Part: 1}}},
		},
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at custom path %s", customPath)
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	client, _ := setupTestDB(t)
	in := sampleAnalysis("triplet", false)

	id, err := client.SaveAnalysis(in)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, in.ID)

	out, err := client.GetAnalysisByID(id)
	require.NoError(t, err)

	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Source, out.Source)
	assert.WithinDuration(t, in.CreatedAt, out.CreatedAt, time.Second)
	require.Len(t, out.Stacks, 2)
	assert.Equal(t, []models.EmptyStaff{{Part: 1, Staff: 2}}, out.Stacks[0].EmptyStaves)
	assert.Equal(t, "1/4", out.Stacks[0].TimeSignature)

	require.Len(t, out.Stacks[0].Measures, 1)
	got, want := out.Stacks[0].Measures[0], in.Stacks[0].Measures[0]
	assert.Equal(t, want.Slots, got.Slots)
	assert.True(t, got.Slots[1].Suspicious)
	assert.Equal(t, want.Voices, got.Voices)
	require.Len(t, got.Voices, 1)
	assert.Equal(t, "V 1 |Ch#1    |Ch#2    |1/6", got.Voices[0].Strip)
	assert.Equal(t, want.Chords, got.Chords)
	assert.Equal(t, want.Tuplets, got.Tuplets)

	require.Len(t, out.Stacks[1].Measures, 1)
	assert.Empty(t, out.Stacks[1].Measures[0].Chords)
}

func TestGetAnalysisNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	_, err := client.GetAnalysisByID("missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestListAnalyses(t *testing.T) {
	client, _ := setupTestDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		a := sampleAnalysis(name, name == "second")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := client.SaveAnalysis(a)
		require.NoError(t, err)
	}

	all, err := client.ListAnalyses(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, 2, all[0].Stacks)
	assert.Equal(t, 2, all[0].Measures)

	page, err := client.ListAnalyses(ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Name)

	abnormal, err := client.ListAnalyses(ListOptions{AbnormalOnly: true})
	require.NoError(t, err)
	require.Len(t, abnormal, 1)
	assert.True(t, abnormal[0].Abnormal)

	named, err := client.ListAnalyses(ListOptions{Name: "ir"})
	require.NoError(t, err)
	require.Len(t, named, 2)

	total, bad, err := client.CountAnalyses()
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), bad)
}

func TestDeleteAnalysis(t *testing.T) {
	client, _ := setupTestDB(t)

	keep, err := client.SaveAnalysis(sampleAnalysis("keep", false))
	require.NoError(t, err)
	drop, err := client.SaveAnalysis(sampleAnalysis("drop", false))
	require.NoError(t, err)

	require.NoError(t, client.DeleteAnalysisByID(drop))

	_, err = client.GetAnalysisByID(drop)
	assert.True(t, errors.Is(err, ErrNotFound))

	var chords int64
	require.NoError(t, client.DB.Model(&Chord{}).Count(&chords).Error)
	assert.Equal(t, int64(2), chords, "only the kept analysis chords remain")

	kept, err := client.GetAnalysisByID(keep)
	require.NoError(t, err)
	assert.Len(t, kept.Measures(), 2)

	err = client.DeleteAnalysisByID(drop)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	_, err := c.SaveAnalysis(sampleAnalysis("x", false))
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
