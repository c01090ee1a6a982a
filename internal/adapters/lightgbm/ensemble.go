// Package lightgbm reads LightGBM text model dumps and evaluates them.
//
// Only single-output probability models are supported (objective "binary" or
// "cross_entropy"), which is what the risk models are trained with. An
// Ensemble is immutable after Parse and safe for concurrent use.
package lightgbm

import (
	"fmt"
	"math"
)

// Decision type bits as written by LightGBM.
const (
	categoricalMask = 1
	defaultLeftMask = 2

	missingNone = 0
	missingZero = 1
	missingNaN  = 2

	zeroThreshold = 1e-35
)

// Ensemble is a parsed boosted tree model.
type Ensemble struct {
	version       string
	objective     string
	sigmoid       float64
	numFeatures   int
	featureNames  []string
	averageOutput bool
	trees         []tree
}

// Version returns the model format version, e.g. "v4".
func (e *Ensemble) Version() string { return e.version }

// Objective returns the objective line of the model, e.g. "binary sigmoid:1".
func (e *Ensemble) Objective() string { return e.objective }

// NumFeatures returns the number of features the model expects.
func (e *Ensemble) NumFeatures() int { return e.numFeatures }

// NumTrees returns the number of trees.
func (e *Ensemble) NumTrees() int { return len(e.trees) }

// FeatureNames returns a copy of the training feature names, if recorded.
func (e *Ensemble) FeatureNames() []string {
	return append([]string(nil), e.featureNames...)
}

// Raw returns the untransformed sum of leaf outputs for features.
func (e *Ensemble) Raw(features []float64) (float64, error) {
	if len(features) != e.numFeatures {
		return 0, fmt.Errorf("%w: got %d values, model expects %d", ErrFeatureCount, len(features), e.numFeatures)
	}
	var sum float64
	for i := range e.trees {
		sum += e.trees[i].predict(features)
	}
	if e.averageOutput && len(e.trees) > 0 {
		sum /= float64(len(e.trees))
	}
	return sum, nil
}

// Predict returns the probability for features, i.e. the logistic link
// applied to Raw. The result is always within [0,1].
func (e *Ensemble) Predict(features []float64) (float64, error) {
	raw, err := e.Raw(features)
	if err != nil {
		return 0, err
	}
	return 1.0 / (1.0 + math.Exp(-e.sigmoid*raw)), nil
}

// tree stores one decision tree in LightGBM's array layout. Internal nodes are
// indexed from 0; a negative child c refers to leaf ^c.
type tree struct {
	splitFeature  []int
	threshold     []float64
	decisionType  []uint8
	leftChild     []int
	rightChild    []int
	leafValue     []float64
	catBoundaries []int
	catThreshold  []uint32
}

func (t *tree) predict(features []float64) float64 {
	if len(t.splitFeature) == 0 {
		return t.leafValue[0]
	}
	node := 0
	for node >= 0 {
		if t.goLeft(node, features[t.splitFeature[node]]) {
			node = t.leftChild[node]
		} else {
			node = t.rightChild[node]
		}
	}
	return t.leafValue[^node]
}

func (t *tree) goLeft(node int, fval float64) bool {
	if t.decisionType[node]&categoricalMask != 0 {
		return t.categoricalLeft(node, fval)
	}
	return t.numericalLeft(node, fval)
}

func (t *tree) numericalLeft(node int, fval float64) bool {
	dt := t.decisionType[node]
	missing := (dt >> 2) & 3
	if math.IsNaN(fval) && missing != missingNaN {
		fval = 0
	}
	if (missing == missingZero && math.Abs(fval) <= zeroThreshold) || (missing == missingNaN && math.IsNaN(fval)) {
		return dt&defaultLeftMask != 0
	}
	return fval <= t.threshold[node]
}

func (t *tree) categoricalLeft(node int, fval float64) bool {
	if math.IsNaN(fval) {
		return false
	}
	cat := int(fval)
	if cat < 0 {
		return false
	}
	idx := int(t.threshold[node])
	bits := t.catThreshold[t.catBoundaries[idx]:t.catBoundaries[idx+1]]
	word := cat / 32
	if word >= len(bits) {
		return false
	}
	return (bits[word]>>(uint(cat)%32))&1 == 1
}
