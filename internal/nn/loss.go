package nn

import (
	"fmt"
	"math"
	"sort"

	"github.com/facet-ml/facet/internal/tensor"
)

// Criterion scores a batch of logits against integer labels and returns
// the scalar loss together with dLoss/dLogits, ready to feed the model's
// Backward. Criteria are selected by name at startup and parameterized
// with the per-class sample-count table for imbalance weighting.
type Criterion interface {
	Loss(logits, labels *tensor.RawTensor) (float32, *tensor.RawTensor)
}

// Criterion registry names.
const (
	CriterionCrossEntropy = "cross_entropy"
	CriterionWeighted     = "weighted"
	CriterionLDAM         = "ldam"
)

// BuildCriterion constructs a criterion by registry name. Unknown names
// fail immediately so a typo aborts before any training state exists.
func BuildCriterion(name string, classCounts []int) (Criterion, error) {
	switch name {
	case CriterionCrossEntropy:
		return NewCrossEntropyLoss(), nil
	case CriterionWeighted:
		return NewWeightedCrossEntropyLoss(classCounts)
	case CriterionLDAM:
		return NewLDAMLoss(classCounts)
	default:
		return nil, fmt.Errorf("unknown criterion %q (have: %s, %s, %s)",
			name, CriterionCrossEntropy, CriterionWeighted, CriterionLDAM)
	}
}

// CriterionNames returns the registered criterion names, sorted.
func CriterionNames() []string {
	names := []string{CriterionCrossEntropy, CriterionWeighted, CriterionLDAM}
	sort.Strings(names)
	return names
}

// CrossEntropyLoss is plain softmax cross-entropy, mean over the batch.
//
// Uses the LogSoftmax + NLL decomposition with the log-sum-exp trick for
// numerical stability. The gradient is softmax(z) - onehot(target),
// averaged over the batch.
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates an unweighted cross-entropy criterion.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Loss computes the mean cross-entropy and its logits gradient.
func (c *CrossEntropyLoss) Loss(logits, labels *tensor.RawTensor) (float32, *tensor.RawTensor) {
	batch, numClasses := checkLossShapes(logits, labels)
	z := logits.AsFloat32()
	t := labels.AsInt64()

	grad, err := tensor.NewRaw(logits.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	g := grad.AsFloat32()

	total := float32(0)
	for b := 0; b < batch; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		logProbs := logSoftmax(row)
		target := classIndex(t[b], numClasses)
		total -= logProbs[target]

		gRow := g[b*numClasses : (b+1)*numClasses]
		for i, lp := range logProbs {
			p := float32(math.Exp(float64(lp)))
			if i == target {
				p -= 1
			}
			gRow[i] = p / float32(batch)
		}
	}
	return total / float32(batch), grad
}

// WeightedCrossEntropyLoss is cross-entropy with per-class weights
// derived from the sample-count table: w_j = N / (K * n_j). Following
// the usual weighted-NLL convention the batch loss is normalized by the
// summed weights of the batch targets, not by the batch size.
type WeightedCrossEntropyLoss struct {
	weights []float32
}

// NewWeightedCrossEntropyLoss builds the criterion from classCounts.
func NewWeightedCrossEntropyLoss(classCounts []int) (*WeightedCrossEntropyLoss, error) {
	weights, err := inverseFrequencyWeights(classCounts)
	if err != nil {
		return nil, err
	}
	return &WeightedCrossEntropyLoss{weights: weights}, nil
}

// Loss computes the weighted mean cross-entropy and its gradient.
func (c *WeightedCrossEntropyLoss) Loss(logits, labels *tensor.RawTensor) (float32, *tensor.RawTensor) {
	batch, numClasses := checkLossShapes(logits, labels)
	if numClasses != len(c.weights) {
		panic(fmt.Sprintf("WeightedCrossEntropyLoss: %d classes but %d weights", numClasses, len(c.weights)))
	}
	z := logits.AsFloat32()
	t := labels.AsInt64()

	grad, err := tensor.NewRaw(logits.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	g := grad.AsFloat32()

	total := float32(0)
	weightSum := float32(0)
	for b := 0; b < batch; b++ {
		target := classIndex(t[b], numClasses)
		weightSum += c.weights[target]
	}

	for b := 0; b < batch; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		logProbs := logSoftmax(row)
		target := classIndex(t[b], numClasses)
		w := c.weights[target]
		total -= w * logProbs[target]

		gRow := g[b*numClasses : (b+1)*numClasses]
		for i, lp := range logProbs {
			p := float32(math.Exp(float64(lp)))
			if i == target {
				p -= 1
			}
			gRow[i] = w * p / weightSum
		}
	}
	return total / weightSum, grad
}

// LDAMLoss applies label-distribution-aware margins before a scaled
// cross-entropy: rarer classes get larger margins, pushing their
// decision boundaries outward. Margins are C / n_j^(1/4), rescaled so
// the largest margin equals maxMargin.
type LDAMLoss struct {
	margins []float32
	scale   float32
}

const (
	ldamMaxMargin = 0.5
	ldamScale     = 30
)

// NewLDAMLoss builds the criterion from classCounts.
func NewLDAMLoss(classCounts []int) (*LDAMLoss, error) {
	if len(classCounts) == 0 {
		return nil, fmt.Errorf("ldam: class count table is empty")
	}
	margins := make([]float32, len(classCounts))
	maxM := float32(0)
	for i, n := range classCounts {
		if n <= 0 {
			return nil, fmt.Errorf("ldam: class %d has non-positive sample count %d", i, n)
		}
		margins[i] = float32(1 / math.Sqrt(math.Sqrt(float64(n))))
		if margins[i] > maxM {
			maxM = margins[i]
		}
	}
	for i := range margins {
		margins[i] *= ldamMaxMargin / maxM
	}
	return &LDAMLoss{margins: margins, scale: ldamScale}, nil
}

// Loss computes the margin-adjusted scaled cross-entropy and gradient.
func (c *LDAMLoss) Loss(logits, labels *tensor.RawTensor) (float32, *tensor.RawTensor) {
	batch, numClasses := checkLossShapes(logits, labels)
	if numClasses != len(c.margins) {
		panic(fmt.Sprintf("LDAMLoss: %d classes but %d margins", numClasses, len(c.margins)))
	}
	z := logits.AsFloat32()
	t := labels.AsInt64()

	grad, err := tensor.NewRaw(logits.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	g := grad.AsFloat32()

	adjusted := make([]float32, numClasses)
	total := float32(0)
	for b := 0; b < batch; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		target := classIndex(t[b], numClasses)
		for i, v := range row {
			adjusted[i] = v * c.scale
		}
		adjusted[target] = (row[target] - c.margins[target]) * c.scale

		logProbs := logSoftmax(adjusted)
		total -= logProbs[target]

		gRow := g[b*numClasses : (b+1)*numClasses]
		for i, lp := range logProbs {
			p := float32(math.Exp(float64(lp)))
			if i == target {
				p -= 1
			}
			gRow[i] = c.scale * p / float32(batch)
		}
	}
	return total / float32(batch), grad
}

// Predictions returns the arg-max class index per row of logits.
func Predictions(logits *tensor.RawTensor) []int64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Predictions: expected 2D logits, got %v", shape))
	}
	batch, numClasses := shape[0], shape[1]
	z := logits.AsFloat32()

	preds := make([]int64, batch)
	for b := 0; b < batch; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		maxIdx := 0
		maxVal := row[0]
		for i := 1; i < numClasses; i++ {
			if row[i] > maxVal {
				maxVal = row[i]
				maxIdx = i
			}
		}
		preds[b] = int64(maxIdx)
	}
	return preds
}

// CountCorrect returns how many predictions match the labels.
func CountCorrect(preds []int64, labels *tensor.RawTensor) int {
	t := labels.AsInt64()
	if len(preds) != len(t) {
		panic(fmt.Sprintf("CountCorrect: %d predictions vs %d labels", len(preds), len(t)))
	}
	correct := 0
	for i, p := range preds {
		if p == t[i] {
			correct++
		}
	}
	return correct
}

func checkLossShapes(logits, labels *tensor.RawTensor) (batch, numClasses int) {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("criterion: logits must be 2D [batch, classes], got %v", shape))
	}
	if labels.NumElements() != shape[0] {
		panic(fmt.Sprintf("criterion: %d labels for batch of %d", labels.NumElements(), shape[0]))
	}
	return shape[0], shape[1]
}

func classIndex(label int64, numClasses int) int {
	if label < 0 || int(label) >= numClasses {
		panic(fmt.Sprintf("criterion: target index %d out of bounds [0, %d)", label, numClasses))
	}
	return int(label)
}

func inverseFrequencyWeights(classCounts []int) ([]float32, error) {
	if len(classCounts) == 0 {
		return nil, fmt.Errorf("class count table is empty")
	}
	total := 0
	for i, n := range classCounts {
		if n <= 0 {
			return nil, fmt.Errorf("class %d has non-positive sample count %d", i, n)
		}
		total += n
	}
	weights := make([]float32, len(classCounts))
	for i, n := range classCounts {
		weights[i] = float32(total) / (float32(len(classCounts)) * float32(n))
	}
	return weights, nil
}

// logSoftmax computes log(softmax(z)) with the log-sum-exp trick.
func logSoftmax(z []float32) []float32 {
	result := make([]float32, len(z))

	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	sumExp := float32(0)
	for _, v := range z {
		sumExp += float32(math.Exp(float64(v - maxZ)))
	}
	logSumExp := maxZ + float32(math.Log(float64(sumExp)))

	for i, v := range z {
		result[i] = v - logSumExp
	}
	return result
}
