package linear

import (
	"fmt"
	"math"

	"github.com/agri-advisor/platform/pkg/ml"
)

// Weights is one linear function: bias + coefficients·x.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

func (w Weights) apply(x []float64) float64 {
	return w.Bias + dot(w.Coefficients, x)
}

// LogisticClassifier is a fitted multinomial logistic regression. With two
// classes and a single weight row it behaves as a binary logistic model and
// the row scores the second class, matching sklearn's export.
type LogisticClassifier struct {
	Labels []string  `json:"classes"`
	Names  []string  `json:"feature_names,omitempty"`
	Rows   []Weights `json:"weights"`
}

func (c *LogisticClassifier) Validate() error {
	if len(c.Labels) < 2 {
		return fmt.Errorf("classifier needs at least two classes, has %d", len(c.Labels))
	}
	binary := len(c.Labels) == 2 && len(c.Rows) == 1
	if !binary && len(c.Rows) != len(c.Labels) {
		return fmt.Errorf("classifier has %d weight rows for %d classes", len(c.Rows), len(c.Labels))
	}
	width := len(c.Rows[0].Coefficients)
	if width == 0 {
		return fmt.Errorf("classifier has no coefficients")
	}
	for i, row := range c.Rows {
		if len(row.Coefficients) != width {
			return fmt.Errorf("classifier row %d has %d coefficients, want %d", i, len(row.Coefficients), width)
		}
	}
	if len(c.Names) > 0 && len(c.Names) != width {
		return fmt.Errorf("classifier names %d features, coefficients cover %d", len(c.Names), width)
	}
	return nil
}

func (c *LogisticClassifier) Classes() []string {
	out := make([]string, len(c.Labels))
	copy(out, c.Labels)
	return out
}

func (c *LogisticClassifier) FeatureNames() []string {
	return c.Names
}

func (c *LogisticClassifier) Dim() int {
	if len(c.Rows) == 0 {
		return 0
	}
	return len(c.Rows[0].Coefficients)
}

func (c *LogisticClassifier) PredictProba(x []float64) ([]float64, error) {
	if err := ml.CheckDim(c.Dim(), len(x)); err != nil {
		return nil, err
	}
	if len(c.Labels) == 2 && len(c.Rows) == 1 {
		p := sigmoid(c.Rows[0].apply(x))
		return []float64{1 - p, p}, nil
	}
	scores := make([]float64, len(c.Rows))
	for i, row := range c.Rows {
		scores[i] = row.apply(x)
	}
	return softmax(scores), nil
}

// Regression is a fitted ordinary least squares (or ridge) model.
type Regression struct {
	Names []string `json:"feature_names,omitempty"`
	Weights
}

func (r *Regression) Validate() error {
	if len(r.Coefficients) == 0 {
		return fmt.Errorf("regression has no coefficients")
	}
	if len(r.Names) > 0 && len(r.Names) != len(r.Coefficients) {
		return fmt.Errorf("regression names %d features, coefficients cover %d", len(r.Names), len(r.Coefficients))
	}
	return nil
}

func (r *Regression) Dim() int {
	return len(r.Coefficients)
}

func (r *Regression) FeatureNames() []string {
	return r.Names
}

func (r *Regression) Predict(x []float64) (float64, error) {
	if err := ml.CheckDim(r.Dim(), len(x)); err != nil {
		return 0, err
	}
	return r.apply(x), nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softmax subtracts the max score first so large logits do not overflow.
func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
