package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/ml"
	"github.com/agri-advisor/platform/pkg/ml/linear"
)

func identityScaler(width int) *linear.StandardScaler {
	s := &linear.StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

func testParts(t *testing.T) Parts {
	t.Helper()
	schema, err := NewSchema("v1", []string{"temperature", "label_rice"})
	require.NoError(t, err)
	return Parts{
		Classifier: &linear.LogisticClassifier{
			Labels: []string{"rice", "maize"},
			Rows:   []linear.Weights{{Coefficients: make([]float64, 7)}},
		},
		ClassifierScaler: identityScaler(7),
		Regressor:        &linear.Regression{Weights: linear.Weights{Coefficients: []float64{1, 1}}},
		RegressorScaler:  identityScaler(2),
		RegressorSchema:  schema,
		Sustainability:   map[string]float64{"rice": 5, "maize": 6},
		CultivationCost:  map[string]float64{"rice": 100},
	}
}

func TestNewCopiesTables(t *testing.T) {
	p := testParts(t)
	b, err := New(p)
	require.NoError(t, err)

	p.Sustainability["rice"] = 1
	p.CultivationCost["maize"] = 1

	score, _ := b.Sustainability("rice")
	assert.Equal(t, 5.0, score)
	_, ok := b.CultivationCost("maize")
	assert.False(t, ok)
	assert.Equal(t, ClassifierFeatures, b.ClassifierFeatureOrder())
}

func TestNewRejectsClassifierWidth(t *testing.T) {
	p := testParts(t)
	p.ClassifierScaler = identityScaler(6)

	_, err := New(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ml.ErrDimension)
}

func TestNewRejectsDuplicateClasses(t *testing.T) {
	p := testParts(t)
	p.Classifier = &linear.LogisticClassifier{
		Labels: []string{"rice", "rice"},
		Rows:   []linear.Weights{{Coefficients: make([]float64, 7)}},
	}
	_, err := New(p)
	assert.Error(t, err)
}

func TestNewRejectsScoreOutOfRange(t *testing.T) {
	p := testParts(t)
	p.Sustainability["rice"] = 12
	_, err := New(p)
	assert.Error(t, err)
}

func TestNewLeavesCoverageToCaller(t *testing.T) {
	p := testParts(t)
	delete(p.Sustainability, "maize")
	b, err := New(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"maize"}, b.MissingSustainability())
}
