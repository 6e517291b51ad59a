package nn

import (
	"fmt"
	"math/rand"

	"github.com/facet-ml/facet/internal/parallel"
	"github.com/facet-ml/facet/internal/tensor"
)

// Conv2d implements a 2D convolution over NCHW input with stride 1 and
// symmetric zero padding. Weight shape is [outC, inC, kH, kW].
type Conv2d struct {
	inChannels  int
	outChannels int
	kernelSize  int
	padding     int

	weight *Parameter
	bias   *Parameter

	input *tensor.RawTensor // cached for backward
	par   parallel.Config
}

// NewConv2d creates a Conv2d layer with Xavier-initialized weights.
func NewConv2d(inChannels, outChannels, kernelSize, padding int, rng *rand.Rand) *Conv2d {
	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weight := NewParameter("weight", Xavier(fanIn, fanOut,
		tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}, rng))
	bias := NewParameter("bias", Zeros(tensor.Shape{outChannels}))

	return &Conv2d{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		padding:     padding,
		weight:      weight,
		bias:        bias,
		par:         parallel.DefaultConfig(),
	}
}

func (c *Conv2d) outDim(in int) int {
	return in + 2*c.padding - c.kernelSize + 1
}

// Forward computes the convolution for input [batch, inC, H, W].
func (c *Conv2d) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != c.inChannels {
		panic(fmt.Sprintf("Conv2d.Forward: expected input [batch, %d, H, W], got %v", c.inChannels, shape))
	}
	c.input = input

	batch, h, w := shape[0], shape[2], shape[3]
	outH, outW := c.outDim(h), c.outDim(w)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("Conv2d.Forward: input %dx%d too small for kernel %d", h, w, c.kernelSize))
	}

	out, err := tensor.NewRaw(tensor.Shape{batch, c.outChannels, outH, outW}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	x := input.AsFloat32()
	wt := c.weight.Tensor().AsFloat32()
	b := c.bias.Tensor().AsFloat32()
	y := out.AsFloat32()
	k := c.kernelSize

	parallel.ForBatch(batch, c.outChannels, func(n, oc int) {
		yPlane := y[(n*c.outChannels+oc)*outH*outW:]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				sum := b[oc]
				for ic := 0; ic < c.inChannels; ic++ {
					xPlane := x[(n*c.inChannels+ic)*h*w:]
					wPlane := wt[((oc*c.inChannels)+ic)*k*k:]
					for ky := 0; ky < k; ky++ {
						iy := oy + ky - c.padding
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < k; kx++ {
							ix := ox + kx - c.padding
							if ix < 0 || ix >= w {
								continue
							}
							sum += xPlane[iy*w+ix] * wPlane[ky*k+kx]
						}
					}
				}
				yPlane[oy*outW+ox] = sum
			}
		}
	}, c.par)

	return out
}

// Backward accumulates weight/bias gradients and returns dLoss/dInput.
func (c *Conv2d) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if c.input == nil {
		panic("Conv2d.Backward called before Forward")
	}
	inShape := c.input.Shape()
	batch, h, w := inShape[0], inShape[2], inShape[3]
	outH, outW := c.outDim(h), c.outDim(w)
	if !grad.Shape().Equal(tensor.Shape{batch, c.outChannels, outH, outW}) {
		panic(fmt.Sprintf("Conv2d.Backward: unexpected grad shape %v", grad.Shape()))
	}

	x := c.input.AsFloat32()
	wt := c.weight.Tensor().AsFloat32()
	g := grad.AsFloat32()
	gw := c.weight.EnsureGrad().AsFloat32()
	gb := c.bias.EnsureGrad().AsFloat32()
	k := c.kernelSize

	din, err := tensor.NewRaw(inShape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	dx := din.AsFloat32()

	// Sequential over the batch: weight gradients are shared state.
	for n := 0; n < batch; n++ {
		for oc := 0; oc < c.outChannels; oc++ {
			gPlane := g[(n*c.outChannels+oc)*outH*outW:]
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					gv := gPlane[oy*outW+ox]
					if gv == 0 {
						continue
					}
					gb[oc] += gv
					for ic := 0; ic < c.inChannels; ic++ {
						xPlane := x[(n*c.inChannels+ic)*h*w:]
						dxPlane := dx[(n*c.inChannels+ic)*h*w:]
						wPlane := wt[((oc*c.inChannels)+ic)*k*k:]
						gwPlane := gw[((oc*c.inChannels)+ic)*k*k:]
						for ky := 0; ky < k; ky++ {
							iy := oy + ky - c.padding
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < k; kx++ {
								ix := ox + kx - c.padding
								if ix < 0 || ix >= w {
									continue
								}
								gwPlane[ky*k+kx] += gv * xPlane[iy*w+ix]
								dxPlane[iy*w+ix] += gv * wPlane[ky*k+kx]
							}
						}
					}
				}
			}
		}
	}

	return din
}

// Parameters returns [weight, bias].
func (c *Conv2d) Parameters() []*Parameter {
	return []*Parameter{c.weight, c.bias}
}

// SetTraining is a no-op.
func (c *Conv2d) SetTraining(bool) {}

// StateDict returns the layer's parameters keyed by name.
func (c *Conv2d) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": c.weight.Tensor(),
		"bias":   c.bias.Tensor(),
	}
}

// LoadStateDict restores weight and bias, validating shapes.
func (c *Conv2d) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadParams(stateDict, c.weight, c.bias)
}
