package ensemble

import (
	"testing"

	"github.com/agri-advisor/platform/pkg/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump splits on feature 0 at 5.
func stump(low, high []float64) Tree {
	return Tree{Nodes: []Node{
		{Feature: 0, Threshold: 5, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: low},
		{Left: leaf, Right: leaf, Value: high},
	}}
}

func TestForestRegressorAveragesTrees(t *testing.T) {
	f := &ForestRegressor{
		Width: 2,
		Trees: []Tree{stump([]float64{10}, []float64{20}), stump([]float64{30}, []float64{40})},
	}
	require.NoError(t, f.Validate())

	y, err := f.Predict([]float64{5, 0})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, y, 1e-12)

	y, err = f.Predict([]float64{6, 0})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, y, 1e-12)

	_, err = f.Predict([]float64{1})
	assert.ErrorIs(t, err, ml.ErrDimension)
}

func TestForestClassifierNormalisesCounts(t *testing.T) {
	f := &ForestClassifier{
		Labels: []string{"rice", "wheat"},
		Width:  1,
		Trees: []Tree{
			stump([]float64{3, 1}, []float64{0, 4}),
			stump([]float64{1, 1}, []float64{1, 3}),
		},
	}
	require.NoError(t, f.Validate())

	probs, err := f.PredictProba([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 0.625, probs[0], 1e-12)
	assert.InDelta(t, 0.375, probs[1], 1e-12)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)
}

func TestForestValidateRejectsBadNodes(t *testing.T) {
	f := &ForestRegressor{
		Width: 1,
		Trees: []Tree{{Nodes: []Node{{Feature: 3, Threshold: 1, Left: 1, Right: 2}}}},
	}
	assert.Error(t, f.Validate())

	f = &ForestRegressor{
		Width: 1,
		Trees: []Tree{{Nodes: []Node{{Left: leaf, Right: 2, Value: []float64{1}}}}},
	}
	assert.Error(t, f.Validate())
}
