package checkpoint

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/facet-ml/facet/internal/nn"
)

// Manager owns the per-slot checkpoint files of one run directory. It
// tracks the best validation macro-F1 seen per slot and gates "best"
// writes on strict improvement; "last" is overwritten every epoch.
// Safe for concurrent use by slot-parallel training: each slot writes
// only its own files, the mutex covers the shared best table.
type Manager struct {
	dir string

	mu     sync.Mutex
	bestF1 map[int]float32
}

// NewManager creates a Manager writing into dir, which must exist.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, bestF1: make(map[int]float32)}
}

// LastPath returns the "last" snapshot path for a slot.
func (m *Manager) LastPath(slot int) string {
	return filepath.Join(m.dir, fmt.Sprintf("model%d_last.ckpt", slot))
}

// BestPath returns the "best" snapshot path for a slot.
func (m *Manager) BestPath(slot int) string {
	return filepath.Join(m.dir, fmt.Sprintf("model%d_best.ckpt", slot))
}

// BestF1 returns the best macro-F1 recorded so far for a slot.
func (m *Manager) BestF1(slot int) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestF1[slot]
}

// Record persists the slot's snapshots for one epoch: "last" is always
// written; "best" only when valF1 strictly exceeds the slot's best so
// far (ties do not overwrite). Returns whether a best write happened.
// Any write failure is fatal for the run and leaves bestF1 untouched.
func (m *Manager) Record(slot int, model nn.StatefulModule, valF1 float32) (bestWritten bool, err error) {
	stateDict := model.StateDict()

	if err := Save(m.LastPath(slot), stateDict); err != nil {
		return false, fmt.Errorf("slot %d: failed to write last checkpoint: %w", slot, err)
	}

	// bestF1 starts at zero, the worst possible macro-F1.
	m.mu.Lock()
	improved := valF1 > m.bestF1[slot]
	m.mu.Unlock()
	if !improved {
		return false, nil
	}

	if err := Save(m.BestPath(slot), stateDict); err != nil {
		return false, fmt.Errorf("slot %d: failed to write best checkpoint: %w", slot, err)
	}
	m.mu.Lock()
	m.bestF1[slot] = valF1
	m.mu.Unlock()
	return true, nil
}
