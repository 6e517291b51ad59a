package data

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
)

// Synthetic is an in-memory Source of procedurally generated images.
// It exists for tests and smoke runs: deterministic for a fixed seed,
// no filesystem involved.
type Synthetic struct {
	records []Record
	images  []*image.RGBA
}

// NewSynthetic builds a pool of persons × perPerson samples of size
// width×height. Labels cycle through the class space so every class has
// at least one sample when the pool is large enough.
func NewSynthetic(persons, perPerson, width, height int, seed int64) *Synthetic {
	rng := rand.New(rand.NewSource(seed))
	s := &Synthetic{}

	n := 0
	for p := 0; p < persons; p++ {
		person := fmt.Sprintf("person_%03d", p)
		for k := 0; k < perPerson; k++ {
			label := Label(n % NumClasses)
			s.records = append(s.records, Record{
				Path:   fmt.Sprintf("%s/img_%02d.jpg", person, k),
				Person: person,
				Label:  label,
			})

			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					img.Set(x, y, color.RGBA{
						R: uint8(rng.Intn(256)),
						G: uint8(rng.Intn(256)),
						B: uint8(rng.Intn(256)),
						A: 255,
					})
				}
			}
			s.images = append(s.images, img)
			n++
		}
	}
	return s
}

// Records returns the pool's metadata.
func (s *Synthetic) Records() []Record { return s.records }

// Image returns the generated image for record i.
func (s *Synthetic) Image(i int) (image.Image, error) {
	return s.images[i], nil
}
