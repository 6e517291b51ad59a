package data

import (
	"fmt"
	"hash/fnv"
	"image"
	_ "image/jpeg" // register decoders for Record images
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/facet-ml/facet/internal/tensor"
)

// NumFolds is the number of person-level folds the pool is split into.
const NumFolds = 5

// Record is one sample's metadata: where its image lives, which person
// it belongs to and its combined class label.
type Record struct {
	Path   string
	Person string
	Label  Label
}

// Source yields decoded images for a pool of records.
type Source interface {
	// Records returns the pool's metadata, ordered and stable.
	Records() []Record

	// Image decodes the image for record index i.
	Image(i int) (image.Image, error)
}

// FileSource reads images from disk, rooted at a data directory.
type FileSource struct {
	root    string
	records []Record
}

// NewFileSource creates a FileSource over records with paths relative
// to root.
func NewFileSource(root string, records []Record) *FileSource {
	return &FileSource{root: root, records: records}
}

// Records returns the pool's metadata.
func (s *FileSource) Records() []Record { return s.records }

// Image opens and decodes the image file for record i.
func (s *FileSource) Image(i int) (image.Image, error) {
	path := filepath.Join(s.root, s.records[i].Path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// foldOf assigns a person to one of NumFolds folds. The assignment is a
// pure function of the person key so it is stable across runs and
// identical for every slot.
func foldOf(person string) int {
	h := fnv.New32a()
	h.Write([]byte(person))
	return int(h.Sum32() % NumFolds)
}

// Partition is one slot's view of the pool: every record whose person
// hashes to the held-out fold is validation, the rest is training. The
// two sides share the Source but never share a record.
type Partition struct {
	source    Source
	indices   []int
	transform Transform
}

// Fold splits the source into train and validation partitions, holding
// out fold heldOut for validation.
func Fold(source Source, heldOut int) (train, val *Partition, err error) {
	if heldOut < 0 || heldOut >= NumFolds {
		return nil, nil, fmt.Errorf("fold index out of range: %d", heldOut)
	}

	records := source.Records()
	trainIdx := make([]int, 0, len(records))
	valIdx := make([]int, 0, len(records)/NumFolds)
	for i, r := range records {
		if foldOf(r.Person) == heldOut {
			valIdx = append(valIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}

	return &Partition{source: source, indices: trainIdx},
		&Partition{source: source, indices: valIdx}, nil
}

// Len returns the number of samples in the partition.
func (p *Partition) Len() int { return len(p.indices) }

// SetTransform swaps the partition's transform. The underlying split is
// untouched, which is what lets a slot flip between train-time and
// eval-time preprocessing.
func (p *Partition) SetTransform(t Transform) { p.transform = t }

// Record returns the metadata of the partition's i-th sample.
func (p *Partition) Record(i int) Record {
	return p.source.Records()[p.indices[i]]
}

// Get decodes and transforms the partition's i-th sample.
func (p *Partition) Get(i int) (*tensor.RawTensor, Label, error) {
	idx := p.indices[i]
	record := p.source.Records()[idx]

	img, err := p.source.Image(idx)
	if err != nil {
		return nil, 0, err
	}
	if p.transform == nil {
		return nil, 0, fmt.Errorf("partition has no transform attached")
	}

	t, err := p.transform(img)
	if err != nil {
		return nil, 0, fmt.Errorf("transform failed for %s: %w", record.Path, err)
	}
	return t, record.Label, nil
}
