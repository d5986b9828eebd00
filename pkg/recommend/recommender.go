package recommend

import (
	"errors"
	"math"

	"github.com/agri-advisor/platform/pkg/ml"
	"github.com/agri-advisor/platform/pkg/ml/artifacts"
)

// ProbabilityTolerance bounds how far a distribution may drift from 1.
const ProbabilityTolerance = 1e-6

// Distribution is the classifier output, one probability per label.
type Distribution struct {
	Labels        []string
	Probabilities []float64
}

func (d Distribution) Len() int { return len(d.Labels) }

// Probability returns the probability assigned to label.
func (d Distribution) Probability(label string) (float64, bool) {
	for i, l := range d.Labels {
		if l == label {
			return d.Probabilities[i], true
		}
	}
	return 0, false
}

// Classify orders fv into the classifier's input layout, scales it and
// returns the probability of every label the classifier knows.
func Classify(b *artifacts.Bundle, fv FeatureVector) (Distribution, error) {
	order := b.ClassifierFeatureOrder()
	if len(order) != len(artifacts.ClassifierFeatures) {
		return Distribution{}, inputErr(StageClassify, "%v: classifier expects %d features, vector has %d",
			ml.ErrDimension, len(order), len(artifacts.ClassifierFeatures))
	}
	named := fv.Named()
	row := make([]float64, len(order))
	for i, name := range order {
		v, ok := named[name]
		if !ok {
			return Distribution{}, inputErr(StageClassify, "%v: no feature maps to classifier column %q", ml.ErrDimension, name)
		}
		row[i] = v
	}

	scaled, err := b.ClassifierScaler().Transform(row)
	if err != nil {
		return Distribution{}, modelErr(StageClassify, err)
	}
	probs, err := b.Classifier().PredictProba(scaled)
	if err != nil {
		return Distribution{}, modelErr(StageClassify, err)
	}

	labels := b.Classes()
	if len(probs) != len(labels) {
		return Distribution{}, computeErr(StageClassify, "classifier returned %d probabilities for %d labels", len(probs), len(labels))
	}
	var sum float64
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return Distribution{}, computeErr(StageClassify, "probability %v for %q is invalid", p, labels[i])
		}
		sum += p
	}
	if math.Abs(sum-1) > ProbabilityTolerance {
		return Distribution{}, computeErr(StageClassify, "probabilities sum to %v", sum)
	}
	return Distribution{Labels: labels, Probabilities: append([]float64(nil), probs...)}, nil
}

// modelErr maps a backend failure: a width mismatch is an input problem,
// anything else a computation failure.
func modelErr(stage string, err error) error {
	if errors.Is(err, ml.ErrDimension) {
		return newError(KindInputValidation, stage, err)
	}
	return newError(KindComputation, stage, err)
}
