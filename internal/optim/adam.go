package optim

import (
	"math"

	"github.com/facet-ml/facet/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // first moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // second moment
//	m_hat = m_t / (1 - beta1^t)                        // bias correction
//	v_hat = v_t / (1 - beta2^t)                        // bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Weight decay is applied as an L2 term folded into the gradient before
// the moment updates.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params      []*nn.Parameter
	lr          float32
	beta1       float32
	beta2       float32
	eps         float32
	weightDecay float32

	t int // timestep for bias correction
	m map[*nn.Parameter][]float32
	v map[*nn.Parameter][]float32
}

// NewAdam creates an Adam optimizer with the usual defaults: LR 0.001,
// betas (0.9, 0.999), eps 1e-8.
func NewAdam(params []*nn.Parameter, config Config) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	return &Adam{
		params:      params,
		lr:          config.LR,
		beta1:       0.9,
		beta2:       0.999,
		eps:         1e-8,
		weightDecay: config.WeightDecay,
		m:           make(map[*nn.Parameter][]float32),
		v:           make(map[*nn.Parameter][]float32),
	}
}

// Step performs a single optimization step using the Adam update.
func (a *Adam) Step() {
	a.t++
	biasCorrection1 := float32(1 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}

		gradData := grad.AsFloat32()
		paramData := param.Tensor().AsFloat32()

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(paramData))
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float32, len(paramData))
			a.v[param] = v
		}

		for i := range paramData {
			g := gradData[i]
			if a.weightDecay != 0 {
				g += a.weightDecay * paramData[i]
			}

			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := m[i] / biasCorrection1
			vHat := v[i] / biasCorrection2

			paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float32 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float32) { a.lr = lr }

// Timestep returns the number of steps taken so far.
func (a *Adam) Timestep() int { return a.t }
