package data

import (
	"fmt"
	"math/rand"

	"github.com/facet-ml/facet/internal/tensor"
)

// Batch is a fixed-size group of samples: Inputs [B, C, H, W] float32
// and Labels [B] int64.
type Batch struct {
	Inputs *tensor.RawTensor
	Labels *tensor.RawTensor
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return b.Labels.Shape()[0] }

// Loader batches a partition. A trailing partial batch is always
// dropped so every batch has exactly batchSize samples and metric
// denominators stay uniform. One full Next scan is one epoch; Reset
// reshuffles (when enabled) and starts the next epoch.
type Loader struct {
	partition *Partition
	batchSize int
	shuffle   bool
	rng       *rand.Rand

	order []int
	pos   int

	inputs *tensor.RawTensor // reused across Next calls
	labels *tensor.RawTensor
}

// NewLoader creates a Loader over partition. rng is only consulted when
// shuffle is enabled and must be owned by the calling slot.
func NewLoader(partition *Partition, batchSize int, shuffle bool, rng *rand.Rand) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if partition.Len() < batchSize {
		return nil, fmt.Errorf("partition has %d samples, need at least one full batch of %d",
			partition.Len(), batchSize)
	}

	l := &Loader{
		partition: partition,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
		order:     make([]int, partition.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.Reset()
	return l, nil
}

// Len returns the number of full batches per epoch.
func (l *Loader) Len() int { return l.partition.Len() / l.batchSize }

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.batchSize }

// Reset rewinds the loader to the start of a fresh epoch, reshuffling
// the sample order when shuffle is enabled.
func (l *Loader) Reset() {
	l.pos = 0
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Next produces the next batch, or ok=false when the epoch is done.
// The returned batch's buffers are reused by the following Next call.
func (l *Loader) Next() (batch *Batch, ok bool, err error) {
	if l.pos+l.batchSize > l.partition.Len() {
		return nil, false, nil
	}

	var labels []int64
	var inputs []float32
	elemsPer := 0

	for i := 0; i < l.batchSize; i++ {
		sample, label, err := l.partition.Get(l.order[l.pos+i])
		if err != nil {
			return nil, false, fmt.Errorf("failed to load sample: %w", err)
		}

		if inputs == nil {
			elemsPer = sample.NumElements()
			if err := l.ensureBuffers(sample.Shape(), elemsPer); err != nil {
				return nil, false, err
			}
			inputs = l.inputs.AsFloat32()
			labels = l.labels.AsInt64()
		} else if sample.NumElements() != elemsPer {
			return nil, false, fmt.Errorf("sample shape %v does not match batch", sample.Shape())
		}

		copy(inputs[i*elemsPer:(i+1)*elemsPer], sample.AsFloat32())
		labels[i] = int64(label)
	}

	l.pos += l.batchSize
	return &Batch{Inputs: l.inputs, Labels: l.labels}, true, nil
}

func (l *Loader) ensureBuffers(sampleShape tensor.Shape, elemsPer int) error {
	if l.inputs != nil {
		return nil
	}
	shape := append(tensor.Shape{l.batchSize}, sampleShape...)
	inputs, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		return err
	}
	labels, err := tensor.NewRaw(tensor.Shape{l.batchSize}, tensor.Int64)
	if err != nil {
		return err
	}
	l.inputs, l.labels = inputs, labels
	return nil
}

// Release drops the loader's cached batch buffers. Called at slot
// boundaries so an idle slot does not pin batch-sized allocations.
func (l *Loader) Release() {
	l.inputs = nil
	l.labels = nil
}
