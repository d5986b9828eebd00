package linear

import (
	"fmt"

	"github.com/agri-advisor/platform/pkg/ml"
)

// StandardScaler applies (x - mean) / scale per column.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
	Names []string  `json:"feature_names,omitempty"`
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	s := &StandardScaler{Mean: mean, Scale: scale}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler mean has %d columns, scale has %d", len(s.Mean), len(s.Scale))
	}
	if len(s.Names) > 0 && len(s.Names) != len(s.Mean) {
		return fmt.Errorf("scaler names %d columns, mean has %d", len(s.Names), len(s.Mean))
	}
	return nil
}

func (s *StandardScaler) Dim() int {
	return len(s.Mean)
}

func (s *StandardScaler) FeatureNames() []string {
	return s.Names
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if err := ml.CheckDim(s.Dim(), len(x)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		// sklearn stores 1.0 for zero-variance columns; guard hand-written files too.
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}
