package onnx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierRequiresClasses(t *testing.T) {
	_, err := NewClassifier(Spec{Path: "missing.onnx", Width: 7, Classes: []string{"rice"}})
	assert.Error(t, err)
}

func TestOpenRequiresWidth(t *testing.T) {
	_, err := NewRegressor(Spec{Path: "missing.onnx"})
	assert.Error(t, err)
}

func TestSpecDefaults(t *testing.T) {
	s := Spec{}.withDefaults("probabilities")
	assert.Equal(t, "input", s.InputName)
	assert.Equal(t, "probabilities", s.OutputName)
}

func TestRegressorAgainstRuntime(t *testing.T) {
	lib := os.Getenv("ONNX_RUNTIME_LIB")
	model := os.Getenv("ONNX_TEST_REGRESSOR")
	if lib == "" || model == "" {
		t.Skip("set ONNX_RUNTIME_LIB and ONNX_TEST_REGRESSOR to run against a real runtime")
	}
	require.NoError(t, Init(lib))

	reg, err := NewRegressor(Spec{Path: model, Width: 7})
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Predict(make([]float64, 7))
	require.NoError(t, err)
}
