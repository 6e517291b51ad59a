package metrics

import (
	"fmt"
)

// ConfusionMatrix counts (true class, predicted class) pairs for a
// multi-class task. Matrix[i][j] is the number of samples of true class
// i predicted as class j.
type ConfusionMatrix struct {
	numClasses int
	matrix     [][]int
	total      int
}

// NewConfusionMatrix creates an empty numClasses×numClasses matrix.
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{numClasses: numClasses, matrix: matrix}
}

// Update records a slice of true/predicted label pairs.
func (cm *ConfusionMatrix) Update(trueLabels, predLabels []int64) error {
	if len(trueLabels) != len(predLabels) {
		return fmt.Errorf("label length mismatch: %d true vs %d predicted",
			len(trueLabels), len(predLabels))
	}
	for i := range trueLabels {
		tl, pl := trueLabels[i], predLabels[i]
		if tl < 0 || tl >= int64(cm.numClasses) || pl < 0 || pl >= int64(cm.numClasses) {
			return fmt.Errorf("label out of range: true=%d pred=%d (classes=%d)",
				tl, pl, cm.numClasses)
		}
		cm.matrix[tl][pl]++
		cm.total++
	}
	return nil
}

// Reset zeroes all counts.
func (cm *ConfusionMatrix) Reset() {
	for i := range cm.matrix {
		for j := range cm.matrix[i] {
			cm.matrix[i][j] = 0
		}
	}
	cm.total = 0
}

// MacroF1 computes the per-class F1 scores and returns their unweighted
// mean. Only classes that appear in the true or predicted labels
// participate in the average; a participating class with zero F1 still
// drags the mean down.
func (cm *ConfusionMatrix) MacroF1() float32 {
	sum := 0.0
	participating := 0

	for class := 0; class < cm.numClasses; class++ {
		tp := cm.matrix[class][class]
		fp, fn := 0, 0
		for other := 0; other < cm.numClasses; other++ {
			if other == class {
				continue
			}
			fp += cm.matrix[other][class]
			fn += cm.matrix[class][other]
		}

		if tp+fp+fn == 0 {
			continue // class absent from both sequences
		}
		participating++
		if tp > 0 {
			precision := float64(tp) / float64(tp+fp)
			recall := float64(tp) / float64(tp+fn)
			sum += 2 * precision * recall / (precision + recall)
		}
	}

	if participating == 0 {
		return 0
	}
	return float32(sum / float64(participating))
}

// Accuracy returns the fraction of correctly classified samples.
func (cm *ConfusionMatrix) Accuracy() float32 {
	if cm.total == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < cm.numClasses; i++ {
		correct += cm.matrix[i][i]
	}
	return float32(correct) / float32(cm.total)
}
