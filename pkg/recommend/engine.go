// Package recommend turns soil and weather inputs into a ranked list of crop
// options using the models in an artifacts.Bundle.
package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/ml/artifacts"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
)

type Options struct {
	TopN               int
	DefaultMarketPrice float64
}

// Result is a successful recommendation. Candidates are sorted by
// estimated profit, highest first.
type Result struct {
	Candidates    []Candidate   `json:"candidates"`
	Features      FeatureVector `json:"features"`
	MarketPrice   float64       `json:"market_price_per_unit"`
	ModelVersion  string        `json:"model_version,omitempty"`
	SchemaVersion string        `json:"schema_version,omitempty"`
}

// Engine runs the pipeline against one bundle. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	bundle *artifacts.Bundle
	opts   Options
}

func NewEngine(bundle *artifacts.Bundle, opts Options) *Engine {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.DefaultMarketPrice <= 0 {
		opts.DefaultMarketPrice = DefaultMarketPrice
	}
	return &Engine{bundle: bundle, opts: opts}
}

func (e *Engine) Bundle() *artifacts.Bundle { return e.bundle }

func (e *Engine) TopN() int { return e.opts.TopN }

// Recommend assembles features from in and runs the remaining stages. An
// input market price overrides the engine default.
func (e *Engine) Recommend(ctx context.Context, in Input, topN int) (Result, error) {
	start := time.Now()
	fv, err := Assemble(in)
	metrics.ObserveStage(StageAssemble, time.Since(start))
	if err != nil {
		return Result{}, e.fail(ctx, err)
	}
	price := e.opts.DefaultMarketPrice
	if in.MarketPrice != nil {
		price = *in.MarketPrice
	}
	return e.RecommendFeatures(ctx, fv, price, topN)
}

// RecommendFeatures runs classification through ranking for an assembled
// vector. A topN of zero uses the engine default.
func (e *Engine) RecommendFeatures(ctx context.Context, fv FeatureVector, price float64, topN int) (Result, error) {
	if topN <= 0 {
		topN = e.opts.TopN
	}

	stage := time.Now()
	dist, err := Classify(e.bundle, fv)
	metrics.ObserveStage(StageClassify, time.Since(stage))
	if err != nil {
		return Result{}, e.fail(ctx, err)
	}

	stage = time.Now()
	selected := SelectTop(dist, topN)
	metrics.ObserveStage(StageSelect, time.Since(stage))

	stage = time.Now()
	forecasts, err := ForecastYields(ctx, e.bundle, fv, selected)
	metrics.ObserveStage(StageForecast, time.Since(stage))
	if err != nil {
		return Result{}, e.fail(ctx, err)
	}

	stage = time.Now()
	scored, err := Score(e.bundle, forecasts, price)
	metrics.ObserveStage(StageScore, time.Since(stage))
	if err != nil {
		return Result{}, e.fail(ctx, err)
	}

	stage = time.Now()
	ranked := Rank(scored)
	metrics.ObserveStage(StageRank, time.Since(stage))

	metrics.ObserveRecommendation("ok", len(ranked))
	return Result{
		Candidates:    ranked,
		Features:      fv,
		MarketPrice:   price,
		ModelVersion:  e.bundle.Version(),
		SchemaVersion: e.bundle.Schema().Version(),
	}, nil
}

func (e *Engine) fail(ctx context.Context, err error) error {
	outcome := "error"
	if pe, ok := AsError(err); ok {
		outcome = pe.Kind.String()
		entry := logger.FromContext(ctx).WithError(err).WithField("stage", pe.Stage)
		if pe.Kind == KindConfiguration {
			entry.Error("Recommendation aborted on inconsistent artifacts")
		} else {
			entry.Warn("Recommendation rejected")
		}
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "canceled"
	}
	metrics.ObserveRecommendation(outcome, 0)
	return err
}
