// Package vis renders the per-epoch prediction-grid artifact: a tile
// per validation sample, framed green when the prediction is correct
// and red when it is not, with a caption sidecar decoding the combined
// labels back into mask/gender/age attributes.
//
// Everything here is best-effort from the trainer's point of view:
// errors are reported but must never affect metric computation.
package vis

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/tensor"
)

const (
	frameWidth = 2
	tilePad    = 4
)

var (
	frameCorrect = color.RGBA{G: 200, A: 255}
	frameWrong   = color.RGBA{R: 220, A: 255}
)

// Caption describes one tile of the grid.
type Caption struct {
	Index     int    `json:"index"`
	True      string `json:"true"`
	Predicted string `json:"predicted"`
	Correct   bool   `json:"correct"`
}

// Grid renders up to maxTiles samples of a normalized [B, 3, H, W]
// batch into one image, columns tiles wide, and returns the captions
// alongside. mean and std undo the batch's normalization for display.
func Grid(inputs *tensor.RawTensor, trueLabels, predLabels []int64,
	mean, std [3]float32, maxTiles, columns int) (image.Image, []Caption, error) {

	shape := inputs.Shape()
	if len(shape) != 4 || shape[1] != 3 {
		return nil, nil, fmt.Errorf("expected [batch, 3, H, W] inputs, got %v", shape)
	}
	if len(trueLabels) != shape[0] || len(predLabels) != shape[0] {
		return nil, nil, fmt.Errorf("label count does not match batch size %d", shape[0])
	}
	if maxTiles <= 0 || columns <= 0 {
		return nil, nil, fmt.Errorf("invalid grid dimensions: %d tiles, %d columns", maxTiles, columns)
	}

	tiles := shape[0]
	if tiles > maxTiles {
		tiles = maxTiles
	}
	h, w := shape[2], shape[3]
	rows := (tiles + columns - 1) / columns

	cellW := w + 2*frameWidth + tilePad
	cellH := h + 2*frameWidth + tilePad
	canvas := image.NewRGBA(image.Rect(0, 0, columns*cellW+tilePad, rows*cellH+tilePad))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	captions := make([]Caption, 0, tiles)
	pixels := inputs.AsFloat32()
	plane := h * w

	for i := 0; i < tiles; i++ {
		correct := trueLabels[i] == predLabels[i]
		frame := frameWrong
		if correct {
			frame = frameCorrect
		}

		x0 := tilePad + (i%columns)*cellW
		y0 := tilePad + (i/columns)*cellH
		frameRect := image.Rect(x0, y0, x0+w+2*frameWidth, y0+h+2*frameWidth)
		draw.Draw(canvas, frameRect, image.NewUniform(frame), image.Point{}, draw.Src)

		base := i * 3 * plane
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				canvas.Set(x0+frameWidth+x, y0+frameWidth+y, color.RGBA{
					R: denormalize(pixels[base+0*plane+y*w+x], mean[0], std[0]),
					G: denormalize(pixels[base+1*plane+y*w+x], mean[1], std[1]),
					B: denormalize(pixels[base+2*plane+y*w+x], mean[2], std[2]),
					A: 255,
				})
			}
		}

		captions = append(captions, Caption{
			Index:     i,
			True:      data.Label(trueLabels[i]).String(),
			Predicted: data.Label(predLabels[i]).String(),
			Correct:   correct,
		})
	}

	return canvas, captions, nil
}

func denormalize(v, mean, std float32) uint8 {
	f := (v*std + mean) * 255
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}
