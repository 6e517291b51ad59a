package runlog

import (
	"bufio"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementDir_FreshName(t *testing.T) {
	root := t.TempDir()
	dir, err := IncrementDir(root, "exp", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "exp"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIncrementDir_SuffixesOnCollision(t *testing.T) {
	root := t.TempDir()

	d1, err := IncrementDir(root, "exp", false)
	require.NoError(t, err)
	d2, err := IncrementDir(root, "exp", false)
	require.NoError(t, err)
	d3, err := IncrementDir(root, "exp", false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "exp"), d1)
	assert.Equal(t, filepath.Join(root, "exp2"), d2)
	assert.Equal(t, filepath.Join(root, "exp3"), d3)
}

func TestIncrementDir_Reuse(t *testing.T) {
	root := t.TempDir()

	d1, err := IncrementDir(root, "exp", false)
	require.NoError(t, err)
	d2, err := IncrementDir(root, "exp", true)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestIncrementDir_EmptyName(t *testing.T) {
	_, err := IncrementDir(t.TempDir(), "", false)
	assert.Error(t, err)
}

func readEvents(t *testing.T, dir string) []ScalarEvent {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var events []ScalarEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev ScalarEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestSink_ScalarStream(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(dir)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Scalar("Train/loss", 2.5, 0, 0))
	require.NoError(t, sink.Scalar("Val/F1", 0.4, 1, 3))

	events := readEvents(t, dir)
	require.Len(t, events, 2)
	assert.Equal(t, ScalarEvent{Tag: "Train/loss", Value: 2.5, Step: 0, Slot: 0}, events[0])
	assert.Equal(t, ScalarEvent{Tag: "Val/F1", Value: 0.4, Step: 1, Slot: 3}, events[1])
}

func TestSink_ConcurrentScalarsStayIntact(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(dir)
	require.NoError(t, err)
	defer sink.Close()

	var wg sync.WaitGroup
	for slot := 0; slot < 5; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for step := 0; step < 50; step++ {
				assert.NoError(t, sink.Scalar("Train/loss", 1, step, slot))
			}
		}(slot)
	}
	wg.Wait()

	events := readEvents(t, dir)
	assert.Len(t, events, 250)
	for _, ev := range events {
		assert.Equal(t, "Train/loss", ev.Tag)
	}
}

func TestSink_ImageArtifact(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(dir)
	require.NoError(t, err)
	defer sink.Close()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, sink.Image("results", img, 7, 2))

	_, err = os.Stat(filepath.Join(dir, "results_slot2_step7.png"))
	assert.NoError(t, err)
}

func TestSink_WriteConfig(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(dir)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.WriteConfig(map[string]any{"seed": 42, "name": "exp"}))

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	var doc struct {
		RunID  string         `json:"run_id"`
		Config map[string]any `json:"config"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, sink.RunID(), doc.RunID)
	assert.EqualValues(t, 42, doc.Config["seed"])
}
