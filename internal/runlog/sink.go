package runlog

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink is the logging sink a run reports into: an append-only JSONL
// stream of scalar events plus PNG image artifacts, all under one run
// directory. Methods are safe for concurrent use by parallel slots; the
// mutex keeps each scalar record intact on the stream.
type Sink struct {
	dir   string
	runID string

	mu     sync.Mutex
	events *os.File
	enc    *json.Encoder
}

// ScalarEvent is one record on the event stream.
type ScalarEvent struct {
	Tag   string  `json:"tag"`
	Value float32 `json:"value"`
	Step  int     `json:"step"`
	Slot  int     `json:"slot"`
}

// Open creates a Sink writing into dir, which must already exist.
func Open(dir string) (*Sink, error) {
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	return &Sink{
		dir:    dir,
		runID:  uuid.NewString(),
		events: f,
		enc:    json.NewEncoder(f),
	}, nil
}

// Dir returns the run directory the sink writes into.
func (s *Sink) Dir() string { return s.dir }

// RunID returns the sink's unique run identifier.
func (s *Sink) RunID() string { return s.runID }

// Scalar appends one (tag, value, step) record for a slot.
func (s *Sink) Scalar(tag string, value float32, step, slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ScalarEvent{Tag: tag, Value: value, Step: step, Slot: slot}); err != nil {
		return fmt.Errorf("failed to append scalar event: %w", err)
	}
	return nil
}

// Image writes an image artifact named after tag, step and slot.
func (s *Sink) Image(tag string, img image.Image, step, slot int) error {
	name := fmt.Sprintf("%s_slot%d_step%d.png", sanitize(tag), slot, step)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create image artifact: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image artifact: %w", err)
	}
	return nil
}

// Artifact writes a JSON artifact named after tag, step and slot, next
// to the image it describes.
func (s *Sink) Artifact(tag string, doc any, step, slot int) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	name := fmt.Sprintf("%s_slot%d_step%d.json", sanitize(tag), slot, step)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// WriteConfig persists the run configuration as config.json at run
// start, stamped with the run ID and start time.
func (s *Sink) WriteConfig(config any) error {
	doc := map[string]any{
		"run_id":     s.runID,
		"started_at": time.Now().UTC().Format(time.RFC3339),
		"config":     config,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "config.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}
	return nil
}

// Close flushes and closes the event stream.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.events.Close(); err != nil {
		return fmt.Errorf("failed to close event stream: %w", err)
	}
	return nil
}

func sanitize(tag string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, tag)
}
