package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRecommend(t *testing.T) {
	e := NewEngine(testBundle(t, defaultBundleOpts()), Options{})
	res, err := e.Recommend(context.Background(), validInput(), 0)
	require.NoError(t, err)

	// wheat 4*2500-1000, onion 3*2500-500, rice 2*2500-2000
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, []string{"wheat", "onion", "rice"}, candidateLabels(res.Candidates))
	assert.Equal(t, 9000.0, res.Candidates[0].EstimatedProfit)
	assert.Equal(t, 7000.0, res.Candidates[1].EstimatedProfit)
	assert.Equal(t, 3000.0, res.Candidates[2].EstimatedProfit)
	assert.Equal(t, DefaultMarketPrice, res.MarketPrice)
	assert.Equal(t, "test", res.SchemaVersion)
}

func TestEngineProfitDescending(t *testing.T) {
	o := defaultBundleOpts()
	o.cost = map[string]float64{"wheat": 12000, "onion": 0, "rice": 100}
	e := NewEngine(testBundle(t, o), Options{TopN: 3})

	in := validInput()
	in.MarketPrice = f(3100)
	res, err := e.Recommend(context.Background(), in, 0)
	require.NoError(t, err)
	assert.Equal(t, 3100.0, res.MarketPrice)
	for i := 1; i < len(res.Candidates); i++ {
		assert.GreaterOrEqual(t, res.Candidates[i-1].EstimatedProfit, res.Candidates[i].EstimatedProfit)
	}
}

func TestEngineResultLength(t *testing.T) {
	e := NewEngine(testBundle(t, defaultBundleOpts()), Options{})
	for n, want := range map[int]int{1: 1, 2: 2, 3: 3, 10: 3} {
		res, err := e.Recommend(context.Background(), validInput(), n)
		require.NoError(t, err)
		assert.Len(t, res.Candidates, want, "top_n=%d", n)
	}
}

func TestEngineDeterministic(t *testing.T) {
	e := NewEngine(testBundle(t, defaultBundleOpts()), Options{})
	first, err := e.Recommend(context.Background(), validInput(), 3)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := e.Recommend(context.Background(), validInput(), 3)
		require.NoError(t, err)
		assert.Equal(t, first.Candidates, again.Candidates)
	}
}

func TestEngineMissingSustainabilityAbortsAtScoring(t *testing.T) {
	o := defaultBundleOpts()
	delete(o.sustainability, "onion")
	e := NewEngine(testBundle(t, o), Options{})

	res, err := e.Recommend(context.Background(), validInput(), 2)
	require.Error(t, err)
	assert.Empty(t, res.Candidates)
	assert.True(t, IsConfiguration(err))

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, StageScore, pe.Stage)
	assert.Equal(t, KindConfiguration, pe.Kind)
}

func TestEngineEqualProfitsKeepSelectorOrder(t *testing.T) {
	o := defaultBundleOpts()
	// every crop yields 1, so profit ties everywhere
	o.coefficients = []float64{0, 0, 0, 0, 0}
	o.cost = map[string]float64{}
	e := NewEngine(testBundle(t, o), Options{})

	res, err := e.Recommend(context.Background(), validInput(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"wheat", "onion", "rice"}, candidateLabels(res.Candidates))
}

func TestEngineEmptyForecast(t *testing.T) {
	e := NewEngine(testBundle(t, defaultBundleOpts()), Options{})
	in := validInput()
	in.Forecast = []ForecastDay{}

	_, err := e.Recommend(context.Background(), in, 0)
	assert.True(t, IsInputValidation(err))
}

func TestEngineClassifierFailure(t *testing.T) {
	b := testBundle(t, defaultBundleOpts())
	b.Classifier().(*fixedClassifier).err = errBackend
	e := NewEngine(b, Options{})

	_, err := e.Recommend(context.Background(), validInput(), 0)
	require.Error(t, err)
	assert.True(t, IsComputation(err))
	assert.ErrorIs(t, err, errBackend)
}
