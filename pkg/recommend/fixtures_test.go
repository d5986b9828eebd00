package recommend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/ml/artifacts"
	"github.com/agri-advisor/platform/pkg/ml/linear"
)

// fixedClassifier returns the same distribution for every row.
type fixedClassifier struct {
	labels []string
	probs  []float64
	err    error
}

func (c *fixedClassifier) Classes() []string { return c.labels }
func (c *fixedClassifier) Dim() int          { return 7 }

func (c *fixedClassifier) PredictProba(x []float64) ([]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]float64(nil), c.probs...), nil
}

var errBackend = errors.New("backend exploded")

func f(v float64) *float64 { return &v }

func identity(width int) *linear.StandardScaler {
	s := &linear.StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

var yieldColumns = []string{"temperature", "total_rainfall_mm", "label_wheat", "label_onion", "label_rice"}

type bundleOpts struct {
	labels         []string
	probs          []float64
	coefficients   []float64
	sustainability map[string]float64
	cost           map[string]float64
}

func defaultBundleOpts() bundleOpts {
	return bundleOpts{
		labels: []string{"wheat", "onion", "rice"},
		probs:  []float64{0.40, 0.35, 0.25},
		// yield = 1 + 3*wheat + 2*onion + 1*rice
		coefficients:   []float64{0, 0, 3, 2, 1},
		sustainability: map[string]float64{"wheat": 7, "onion": 6, "rice": 5.5},
		cost:           map[string]float64{"wheat": 1000, "onion": 500, "rice": 2000},
	}
}

func testBundle(t *testing.T, o bundleOpts) *artifacts.Bundle {
	t.Helper()
	schema, err := artifacts.NewSchema("test", yieldColumns)
	require.NoError(t, err)
	b, err := artifacts.New(artifacts.Parts{
		Version:          "test",
		Classifier:       &fixedClassifier{labels: o.labels, probs: o.probs},
		ClassifierScaler: identity(7),
		Regressor: &linear.Regression{
			Names:   yieldColumns,
			Weights: linear.Weights{Bias: 1, Coefficients: o.coefficients},
		},
		RegressorScaler: identity(len(yieldColumns)),
		RegressorSchema: schema,
		Sustainability:  o.sustainability,
		CultivationCost: o.cost,
	})
	require.NoError(t, err)
	return b
}

func week(temp, humidity, rain float64) []ForecastDay {
	days := make([]ForecastDay, 7)
	for i := range days {
		days[i] = ForecastDay{Temperature: f(temp), Humidity: f(humidity), Rainfall: rain}
	}
	return days
}

func validInput() Input {
	return Input{
		Soil:     Soil{PH: f(6.5), OrganicCarbon: f(1.2), Sand: f(400), Silt: f(350), Clay: f(250)},
		Forecast: week(25, 60, 2),
	}
}
