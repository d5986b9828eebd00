package recommend

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/ml/artifacts"
)

// DefaultMarketPrice stands in per unit of yield until real market data is supplied.
const DefaultMarketPrice = 2500.0

// Candidate is one scored crop option.
type Candidate struct {
	Label               string  `json:"crop_label"`
	DisplayName         string  `json:"display_name"`
	Probability         float64 `json:"probability"`
	PredictedYield      float64 `json:"predicted_yield"`
	SustainabilityScore float64 `json:"sustainability_score"`
	CultivationCost     float64 `json:"cultivation_cost"`
	CostKnown           bool    `json:"cost_known"`
	GrossRevenue        float64 `json:"gross_revenue"`
	EstimatedProfit     float64 `json:"estimated_profit"`
}

// Score attaches sustainability and cost to every forecast and computes
// profit at price per unit of yield. A label missing from the
// sustainability table fails the whole request. A missing cost counts as
// zero and clears CostKnown.
func Score(b *artifacts.Bundle, forecasts []Forecast, price float64) ([]Candidate, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, inputErr(StageScore, "market price %v must be a finite non-negative number", price)
	}
	p := decimal.NewFromFloat(price)

	out := make([]Candidate, 0, len(forecasts))
	for _, f := range forecasts {
		sustainability, ok := b.Sustainability(f.Label)
		if !ok {
			return nil, configErr(StageScore, "no sustainability score for crop %q", f.Label)
		}
		cost, known := b.CultivationCost(f.Label)
		if !known {
			logger.WithField("crop", f.Label).Warn("No cultivation cost for crop, assuming zero")
		}

		y := decimal.NewFromFloat(f.Yield)
		revenue := y.Mul(p)
		profit := revenue.Sub(decimal.NewFromFloat(cost))

		out = append(out, Candidate{
			Label:               f.Label,
			DisplayName:         DisplayName(f.Label),
			Probability:         round(decimal.NewFromFloat(f.Probability), 4),
			PredictedYield:      round(y, 2),
			SustainabilityScore: round(decimal.NewFromFloat(sustainability), 2),
			CultivationCost:     round(decimal.NewFromFloat(cost), 2),
			CostKnown:           known,
			GrossRevenue:        round(revenue, 2),
			EstimatedProfit:     round(profit, 2),
		})
	}
	return out, nil
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()
	return f
}

// DisplayName upper-cases the first letter and lower-cases the rest.
func DisplayName(label string) string {
	if label == "" {
		return label
	}
	runes := []rune(strings.ToLower(label))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
