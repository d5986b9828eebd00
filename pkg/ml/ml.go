// Package ml defines the capabilities the recommendation pipeline needs from
// a model backend. Backends live in the linear, ensemble and onnx packages.
package ml

import (
	"errors"
	"fmt"
)

// ErrDimension is returned when an input row does not match a model's width.
var ErrDimension = errors.New("dimension mismatch")

// Transformer is a fitted preprocessing step such as a feature scaler.
type Transformer interface {
	Transform(x []float64) ([]float64, error)
	Dim() int
}

// Classifier returns one probability per label in Classes order.
type Classifier interface {
	Classes() []string
	PredictProba(x []float64) ([]float64, error)
	Dim() int
}

// Regressor returns a single scalar prediction.
type Regressor interface {
	Predict(x []float64) (float64, error)
	Dim() int
}

// FeatureNamer is implemented by models that record their training column order.
type FeatureNamer interface {
	FeatureNames() []string
}

// CheckDim reports whether a row of width got fits a model of width want.
// A want of zero means the backend does not know its width.
func CheckDim(want, got int) error {
	if want > 0 && want != got {
		return fmt.Errorf("%w: expected %d features, got %d", ErrDimension, want, got)
	}
	return nil
}
