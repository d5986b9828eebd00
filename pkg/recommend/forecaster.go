package recommend

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/agri-advisor/platform/pkg/ml/artifacts"
)

// LabelColumnPrefix prefixes the one-hot crop columns of the yield schema.
const LabelColumnPrefix = "label_"

// Forecast is the predicted yield for one selected label.
type Forecast struct {
	Selection
	Yield float64
}

// YieldRow builds the schema-aligned regressor input for label. Columns
// with no matching live feature stay zero, and a label with no one-hot
// column simply carries no identity signal.
func YieldRow(schema artifacts.Schema, fv FeatureVector, label string) []float64 {
	row := make([]float64, schema.Len())
	if i, ok := schema.Index(LabelColumnPrefix + label); ok {
		row[i] = 1
	}
	for name, v := range fv.Named() {
		if i, ok := schema.Index(name); ok {
			row[i] = v
		}
	}
	return row
}

// ForecastYields predicts a yield for every selection concurrently.
// Results keep the order of selections.
func ForecastYields(ctx context.Context, b *artifacts.Bundle, fv FeatureVector, selections []Selection) ([]Forecast, error) {
	out := make([]Forecast, len(selections))
	g, ctx := errgroup.WithContext(ctx)
	for i, sel := range selections {
		i, sel := i, sel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			y, err := forecastOne(b, fv, sel.Label)
			if err != nil {
				return err
			}
			out[i] = Forecast{Selection: sel, Yield: y}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func forecastOne(b *artifacts.Bundle, fv FeatureVector, label string) (float64, error) {
	row := YieldRow(b.Schema(), fv, label)
	scaled, err := b.RegressorScaler().Transform(row)
	if err != nil {
		return 0, modelErr(StageForecast, err)
	}
	y, err := b.Regressor().Predict(scaled)
	if err != nil {
		return 0, modelErr(StageForecast, err)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, computeErr(StageForecast, "yield for %q is not finite", label)
	}
	return y, nil
}
