package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/ml"
	"github.com/agri-advisor/platform/pkg/ml/ensemble"
	"github.com/agri-advisor/platform/pkg/ml/linear"
	"github.com/agri-advisor/platform/pkg/ml/onnx"
)

const ManifestFile = "manifest.yaml"

const (
	FormatLinear = "linear"
	FormatForest = "forest"
	FormatONNX   = "onnx"
)

// LoadOptions control Load.
type LoadOptions struct {
	// ONNXRuntimeLib is the shared library path used when a manifest
	// entry has format onnx.
	ONNXRuntimeLib string
}

// Entry describes one artifact file in the manifest.
type Entry struct {
	File       string   `yaml:"file"`
	Format     string   `yaml:"format,omitempty"`
	InputName  string   `yaml:"input_name,omitempty"`
	OutputName string   `yaml:"output_name,omitempty"`
	Classes    []string `yaml:"classes,omitempty"`
}

// ColumnsEntry describes the regressor schema file.
type ColumnsEntry struct {
	File    string `yaml:"file"`
	Version string `yaml:"version,omitempty"`
	SHA256  string `yaml:"sha256,omitempty"`
}

// Manifest is the optional manifest.yaml in an artifact directory.
type Manifest struct {
	Version          string       `yaml:"version"`
	Classifier       Entry        `yaml:"classifier"`
	ClassifierScaler Entry        `yaml:"classifier_scaler"`
	Regressor        Entry        `yaml:"regressor"`
	RegressorScaler  Entry        `yaml:"regressor_scaler"`
	RegressorColumns ColumnsEntry `yaml:"regressor_columns"`
	Sustainability   Entry        `yaml:"sustainability"`
	CultivationCost  Entry        `yaml:"cultivation_cost"`
}

// DefaultManifest names the files produced by the offline training job.
func DefaultManifest() Manifest {
	return Manifest{
		Classifier:       Entry{File: "crop_recommender.json", Format: FormatLinear},
		ClassifierScaler: Entry{File: "crop_recommender_scaler.json"},
		Regressor:        Entry{File: "yield_forecaster.json", Format: FormatLinear},
		RegressorScaler:  Entry{File: "yield_forecaster_scaler.json"},
		RegressorColumns: ColumnsEntry{File: "yield_forecaster_columns.json"},
		Sustainability:   Entry{File: "sustainability_scores.csv"},
		CultivationCost:  Entry{File: "cost_of_cultivation.json"},
	}
}

// Load reads every artifact under dir. Any missing, unreadable or
// inconsistent file yields a *LoadError.
func Load(dir string, opts LoadOptions) (*Bundle, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	schema, err := loadColumns(dir, m.RegressorColumns)
	if err != nil {
		return nil, err
	}
	if m.Classifier.Format == FormatONNX || m.Regressor.Format == FormatONNX {
		if err := onnx.Init(opts.ONNXRuntimeLib); err != nil {
			return nil, loadErr("onnx_runtime", opts.ONNXRuntimeLib, err)
		}
	}

	classifier, err := loadClassifier(dir, m.Classifier)
	if err != nil {
		return nil, err
	}
	parts := Parts{Version: m.Version, Classifier: classifier, RegressorSchema: schema}
	closeOnErr := func(err error) (*Bundle, error) {
		for _, model := range []interface{}{parts.Classifier, parts.Regressor} {
			if c, ok := model.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return nil, err
	}

	if parts.ClassifierScaler, err = loadScaler(dir, ArtifactClassifierScaler, m.ClassifierScaler); err != nil {
		return closeOnErr(err)
	}
	if parts.Regressor, err = loadRegressor(dir, m.Regressor, schema); err != nil {
		return closeOnErr(err)
	}
	if parts.RegressorScaler, err = loadScaler(dir, ArtifactRegressorScaler, m.RegressorScaler); err != nil {
		return closeOnErr(err)
	}
	if parts.Sustainability, err = loadSustainability(dir, m.Sustainability); err != nil {
		return closeOnErr(err)
	}
	if parts.CultivationCost, err = loadCosts(dir, m.CultivationCost); err != nil {
		return closeOnErr(err)
	}

	bundle, err := New(parts)
	if err != nil {
		return closeOnErr(err)
	}

	if missing := bundle.MissingSustainability(); len(missing) > 0 {
		_ = bundle.Close()
		return nil, loadErr(ArtifactSustainability, filepath.Join(dir, m.Sustainability.File),
			fmt.Errorf("%w: %s", ErrLabelCoverage, strings.Join(missing, ", ")))
	}
	if missing := bundle.MissingCost(); len(missing) > 0 {
		logger.WithField("labels", missing).Warn("Cultivation cost missing for labels; profit will assume zero cost")
	}

	logger.WithFields(map[string]interface{}{
		"dir":            dir,
		"version":        bundle.Version(),
		"classes":        len(bundle.Classes()),
		"schema_columns": schema.Len(),
		"schema_version": schema.Version(),
		"schema_sha256":  schema.Hash(),
	}).Info("Model artifacts loaded")

	return bundle, nil
}

func readManifest(dir string) (Manifest, error) {
	m := DefaultManifest()
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, loadErr("manifest", path, err)
	}

	var override Manifest
	if err := yaml.Unmarshal(data, &override); err != nil {
		return m, loadErr("manifest", path, fmt.Errorf("parse: %w", err))
	}
	m.Version = override.Version
	mergeEntry(&m.Classifier, override.Classifier)
	mergeEntry(&m.ClassifierScaler, override.ClassifierScaler)
	mergeEntry(&m.Regressor, override.Regressor)
	mergeEntry(&m.RegressorScaler, override.RegressorScaler)
	mergeEntry(&m.Sustainability, override.Sustainability)
	mergeEntry(&m.CultivationCost, override.CultivationCost)
	if override.RegressorColumns.File != "" {
		m.RegressorColumns.File = override.RegressorColumns.File
	}
	m.RegressorColumns.Version = override.RegressorColumns.Version
	m.RegressorColumns.SHA256 = override.RegressorColumns.SHA256
	return m, nil
}

func mergeEntry(dst *Entry, src Entry) {
	if src.File != "" {
		dst.File = src.File
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	dst.InputName = src.InputName
	dst.OutputName = src.OutputName
	if len(src.Classes) > 0 {
		dst.Classes = src.Classes
	}
}

func decodeJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

type validator interface {
	Validate() error
}

func decodeModel(path string, v validator) error {
	if err := decodeJSON(path, v); err != nil {
		return err
	}
	return v.Validate()
}

func loadClassifier(dir string, e Entry) (ml.Classifier, error) {
	path := filepath.Join(dir, e.File)
	switch e.Format {
	case FormatLinear, "":
		c := &linear.LogisticClassifier{}
		if err := decodeModel(path, c); err != nil {
			return nil, loadErr(ArtifactClassifier, path, err)
		}
		return c, nil
	case FormatForest:
		c := &ensemble.ForestClassifier{}
		if err := decodeModel(path, c); err != nil {
			return nil, loadErr(ArtifactClassifier, path, err)
		}
		return c, nil
	case FormatONNX:
		c, err := onnx.NewClassifier(onnx.Spec{
			Path:         path,
			InputName:    e.InputName,
			OutputName:   e.OutputName,
			Width:        len(ClassifierFeatures),
			Classes:      e.Classes,
			FeatureNames: ClassifierFeatures,
		})
		if err != nil {
			return nil, loadErr(ArtifactClassifier, path, err)
		}
		return c, nil
	default:
		return nil, loadErr(ArtifactClassifier, path, fmt.Errorf("unknown format %q", e.Format))
	}
}

func loadRegressor(dir string, e Entry, schema Schema) (ml.Regressor, error) {
	path := filepath.Join(dir, e.File)
	switch e.Format {
	case FormatLinear, "":
		r := &linear.Regression{}
		if err := decodeModel(path, r); err != nil {
			return nil, loadErr(ArtifactRegressor, path, err)
		}
		return r, nil
	case FormatForest:
		r := &ensemble.ForestRegressor{}
		if err := decodeModel(path, r); err != nil {
			return nil, loadErr(ArtifactRegressor, path, err)
		}
		return r, nil
	case FormatONNX:
		r, err := onnx.NewRegressor(onnx.Spec{
			Path:         path,
			InputName:    e.InputName,
			OutputName:   e.OutputName,
			Width:        schema.Len(),
			FeatureNames: schema.Columns(),
		})
		if err != nil {
			return nil, loadErr(ArtifactRegressor, path, err)
		}
		return r, nil
	default:
		return nil, loadErr(ArtifactRegressor, path, fmt.Errorf("unknown format %q", e.Format))
	}
}

func loadScaler(dir, artifact string, e Entry) (ml.Transformer, error) {
	path := filepath.Join(dir, e.File)
	s := &linear.StandardScaler{}
	if err := decodeModel(path, s); err != nil {
		return nil, loadErr(artifact, path, err)
	}
	return s, nil
}

// columnsFile accepts either a bare JSON array or {"version", "columns"}.
type columnsFile struct {
	Version string   `json:"version"`
	Columns []string `json:"columns"`
}

func loadColumns(dir string, e ColumnsEntry) (Schema, error) {
	path := filepath.Join(dir, e.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, loadErr(ArtifactRegressorColumns, path, err)
	}

	var cf columnsFile
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &cf.Columns)
	} else {
		err = json.Unmarshal(data, &cf)
	}
	if err != nil {
		return Schema{}, loadErr(ArtifactRegressorColumns, path, fmt.Errorf("parse: %w", err))
	}

	version := e.Version
	if version == "" {
		version = cf.Version
	}
	schema, err := NewSchema(version, cf.Columns)
	if err != nil {
		return Schema{}, loadErr(ArtifactRegressorColumns, path, err)
	}
	if e.SHA256 != "" && !strings.EqualFold(e.SHA256, schema.Hash()) {
		return Schema{}, loadErr(ArtifactRegressorColumns, path,
			fmt.Errorf("schema hash %s does not match manifest %s", schema.Hash(), e.SHA256))
	}
	return schema, nil
}

func loadSustainability(dir string, e Entry) (map[string]float64, error) {
	path := filepath.Join(dir, e.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, loadErr(ArtifactSustainability, path, err)
	}
	defer f.Close()

	scores, err := parseSustainability(f)
	if err != nil {
		return nil, loadErr(ArtifactSustainability, path, err)
	}
	return scores, nil
}

func parseSustainability(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	labelCol, scoreCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "label":
			labelCol = i
		case "sustainability_score":
			scoreCol = i
		}
	}
	if labelCol < 0 || scoreCol < 0 {
		return nil, fmt.Errorf("header must contain label and sustainability_score, got %v", header)
	}

	scores := make(map[string]float64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		label := strings.TrimSpace(record[labelCol])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty label", line)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(record[scoreCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: score for %q: %w", line, label, err)
		}
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("line %d: score %v for %q outside [0,10]", line, score, label)
		}
		if _, dup := scores[label]; dup {
			return nil, fmt.Errorf("line %d: label %q appears twice", line, label)
		}
		scores[label] = score
	}
	return scores, nil
}

func loadCosts(dir string, e Entry) (map[string]float64, error) {
	path := filepath.Join(dir, e.File)
	costs := make(map[string]float64)
	if err := decodeJSON(path, &costs); err != nil {
		return nil, loadErr(ArtifactCultivationCost, path, err)
	}
	for label, c := range costs {
		if c < 0 {
			return nil, loadErr(ArtifactCultivationCost, path, fmt.Errorf("negative cost %v for %q", c, label))
		}
	}
	return costs, nil
}
