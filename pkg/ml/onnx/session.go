// Package onnx runs classifiers and regressors exported to ONNX (for example
// with skl2onnx and zipmap disabled) through ONNX Runtime.
package onnx

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/agri-advisor/platform/pkg/ml"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the ONNX Runtime shared library once per process.
func Init(libPath string) error {
	initOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if ort.IsInitialized() {
			return
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("initialize onnx runtime: %w", err)
		}
	})
	return initErr
}

// Spec describes the graph signature of an exported model.
type Spec struct {
	Path         string
	InputName    string
	OutputName   string
	Width        int
	Classes      []string
	FeatureNames []string
}

func (s Spec) withDefaults(output string) Spec {
	if s.InputName == "" {
		s.InputName = "input"
	}
	if s.OutputName == "" {
		s.OutputName = output
	}
	return s
}

type session struct {
	spec    Spec
	session *ort.DynamicAdvancedSession
}

func open(spec Spec) (*session, error) {
	if spec.Width <= 0 {
		return nil, errors.New("onnx model requires a positive feature width")
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	s, err := ort.NewDynamicAdvancedSession(spec.Path, []string{spec.InputName}, []string{spec.OutputName}, options)
	if err != nil {
		return nil, fmt.Errorf("load onnx model %s: %w", spec.Path, err)
	}
	return &session{spec: spec, session: s}, nil
}

// run feeds one row and returns the flattened float32 output of the given width.
func (s *session) run(x []float64, outWidth int) ([]float32, error) {
	if err := ml.CheckDim(s.spec.Width, len(x)); err != nil {
		return nil, err
	}
	row := make([]float32, len(x))
	for i, v := range x {
		row[i] = float32(v)
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(row))), row)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(outWidth)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	data := output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

// Classifier expects a probabilities output of shape [1, len(Classes)].
type Classifier struct {
	*session
}

func NewClassifier(spec Spec) (*Classifier, error) {
	spec = spec.withDefaults("probabilities")
	if len(spec.Classes) < 2 {
		return nil, errors.New("onnx classifier requires at least two classes")
	}
	s, err := open(spec)
	if err != nil {
		return nil, err
	}
	return &Classifier{session: s}, nil
}

func (c *Classifier) Classes() []string {
	out := make([]string, len(c.spec.Classes))
	copy(out, c.spec.Classes)
	return out
}

func (c *Classifier) Dim() int               { return c.spec.Width }
func (c *Classifier) FeatureNames() []string { return c.spec.FeatureNames }

func (c *Classifier) PredictProba(x []float64) ([]float64, error) {
	raw, err := c.run(x, len(c.spec.Classes))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, p := range raw {
		out[i] = float64(p)
	}
	return out, nil
}

// Regressor expects a single-value output of shape [1, 1].
type Regressor struct {
	*session
}

func NewRegressor(spec Spec) (*Regressor, error) {
	s, err := open(spec.withDefaults("variable"))
	if err != nil {
		return nil, err
	}
	return &Regressor{session: s}, nil
}

func (r *Regressor) Dim() int               { return r.spec.Width }
func (r *Regressor) FeatureNames() []string { return r.spec.FeatureNames }

func (r *Regressor) Predict(x []float64) (float64, error) {
	raw, err := r.run(x, 1)
	if err != nil {
		return 0, err
	}
	return float64(raw[0]), nil
}
