// Package data implements dataset loading, fold partitioning, image
// transforms and batch loading for the facial-attribute task.
//
// The classification target combines three sub-tasks: mask-wearing
// (3 states), gender (2) and age group (3), encoded into one of 18
// classes. Samples belonging to the same person always land in the same
// fold so a slot never validates on faces it trained on.
package data

import (
	"fmt"
)

// Attribute values for the three sub-tasks.
const (
	MaskWear      = 0
	MaskIncorrect = 1
	MaskNotWear   = 2

	GenderMale   = 0
	GenderFemale = 1

	AgeUnder30 = 0
	Age30To60  = 1
	AgeOver60  = 2
)

// NumClasses is the size of the combined label space (3 * 2 * 3).
const NumClasses = 18

// Label is a combined class index in [0, NumClasses).
type Label int64

// EncodeLabel combines the three attribute values into one class index.
func EncodeLabel(mask, gender, age int) (Label, error) {
	if mask < 0 || mask > 2 {
		return 0, fmt.Errorf("mask attribute out of range: %d", mask)
	}
	if gender < 0 || gender > 1 {
		return 0, fmt.Errorf("gender attribute out of range: %d", gender)
	}
	if age < 0 || age > 2 {
		return 0, fmt.Errorf("age attribute out of range: %d", age)
	}
	return Label(mask*6 + gender*3 + age), nil
}

// Decode splits the combined class index back into its attributes.
func (l Label) Decode() (mask, gender, age int) {
	return int(l) / 6, (int(l) % 6) / 3, int(l) % 3
}

// AgeGroup buckets an age in years into the three age-group values.
func AgeGroup(years int) int {
	switch {
	case years < 30:
		return AgeUnder30
	case years < 60:
		return Age30To60
	default:
		return AgeOver60
	}
}

var maskNames = [3]string{"wear", "incorrect", "not_wear"}
var genderNames = [2]string{"male", "female"}
var ageNames = [3]string{"under_30", "30_to_60", "over_60"}

// String renders the label as "wear/female/under_30".
func (l Label) String() string {
	mask, gender, age := l.Decode()
	return maskNames[mask] + "/" + genderNames[gender] + "/" + ageNames[age]
}

// ClassCounts tallies how many samples of each combined class appear in
// records. The result feeds the imbalance-aware criteria.
func ClassCounts(records []Record) []int {
	counts := make([]int, NumClasses)
	for _, r := range records {
		counts[r.Label]++
	}
	return counts
}
