// Package artifacts holds the immutable set of models and lookup tables the
// recommendation pipeline runs against. A Bundle is built once per process
// and shared by every request without locking.
package artifacts

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/agri-advisor/platform/pkg/ml"
)

// ClassifierFeatures is the column order the crop classifier was trained on.
var ClassifierFeatures = []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

const (
	ArtifactClassifier       = "classifier"
	ArtifactClassifierScaler = "classifier_scaler"
	ArtifactRegressor        = "regressor"
	ArtifactRegressorScaler  = "regressor_scaler"
	ArtifactRegressorColumns = "regressor_columns"
	ArtifactSustainability   = "sustainability"
	ArtifactCultivationCost  = "cultivation_cost"
)

// Parts are the inputs to New.
type Parts struct {
	Version          string
	Classifier       ml.Classifier
	ClassifierScaler ml.Transformer
	Regressor        ml.Regressor
	RegressorScaler  ml.Transformer
	RegressorSchema  Schema
	Sustainability   map[string]float64
	CultivationCost  map[string]float64
}

type Bundle struct {
	version          string
	classifier       ml.Classifier
	classifierScaler ml.Transformer
	classes          []string
	classifierNames  []string
	regressor        ml.Regressor
	regressorScaler  ml.Transformer
	schema           Schema
	sustainability   map[string]float64
	cost             map[string]float64
}

// New validates the structural consistency of parts and returns a Bundle
// that owns private copies of the lookup tables. Label coverage of the
// sustainability table is not checked here; see MissingSustainability.
func New(p Parts) (*Bundle, error) {
	if p.Classifier == nil {
		return nil, loadErr(ArtifactClassifier, "", fmt.Errorf("missing"))
	}
	if p.ClassifierScaler == nil {
		return nil, loadErr(ArtifactClassifierScaler, "", fmt.Errorf("missing"))
	}
	if p.Regressor == nil {
		return nil, loadErr(ArtifactRegressor, "", fmt.Errorf("missing"))
	}
	if p.RegressorScaler == nil {
		return nil, loadErr(ArtifactRegressorScaler, "", fmt.Errorf("missing"))
	}
	if p.RegressorSchema.Len() == 0 {
		return nil, loadErr(ArtifactRegressorColumns, "", fmt.Errorf("schema has no columns"))
	}
	if p.Sustainability == nil {
		return nil, loadErr(ArtifactSustainability, "", fmt.Errorf("missing"))
	}

	width := len(ClassifierFeatures)
	if err := ml.CheckDim(p.Classifier.Dim(), width); err != nil {
		return nil, loadErr(ArtifactClassifier, "", err)
	}
	if err := ml.CheckDim(p.ClassifierScaler.Dim(), width); err != nil {
		return nil, loadErr(ArtifactClassifierScaler, "", err)
	}
	classes := p.Classifier.Classes()
	if len(classes) == 0 {
		return nil, loadErr(ArtifactClassifier, "", fmt.Errorf("no classes"))
	}
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if _, dup := seen[c]; dup {
			return nil, loadErr(ArtifactClassifier, "", fmt.Errorf("class %q appears twice", c))
		}
		seen[c] = struct{}{}
	}
	var classifierNames []string
	if namer, ok := p.Classifier.(ml.FeatureNamer); ok && len(namer.FeatureNames()) > 0 {
		classifierNames = append([]string(nil), namer.FeatureNames()...)
		if len(classifierNames) != width {
			return nil, loadErr(ArtifactClassifier, "", fmt.Errorf("%w: classifier names %d features", ml.ErrDimension, len(classifierNames)))
		}
	}

	cols := p.RegressorSchema.Len()
	if err := ml.CheckDim(p.RegressorScaler.Dim(), cols); err != nil {
		return nil, loadErr(ArtifactRegressorScaler, "", err)
	}
	if err := ml.CheckDim(p.Regressor.Dim(), cols); err != nil {
		return nil, loadErr(ArtifactRegressor, "", err)
	}
	if err := checkNames(p.Regressor, p.RegressorSchema); err != nil {
		return nil, loadErr(ArtifactRegressor, "", err)
	}
	if err := checkNames(p.RegressorScaler, p.RegressorSchema); err != nil {
		return nil, loadErr(ArtifactRegressorScaler, "", err)
	}

	sustainability := make(map[string]float64, len(p.Sustainability))
	for label, score := range p.Sustainability {
		if math.IsNaN(score) || score < 0 || score > 10 {
			return nil, loadErr(ArtifactSustainability, "", fmt.Errorf("score %v for %q outside [0,10]", score, label))
		}
		sustainability[label] = score
	}
	cost := make(map[string]float64, len(p.CultivationCost))
	for label, c := range p.CultivationCost {
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return nil, loadErr(ArtifactCultivationCost, "", fmt.Errorf("invalid cost %v for %q", c, label))
		}
		cost[label] = c
	}

	return &Bundle{
		version:          p.Version,
		classifier:       p.Classifier,
		classifierScaler: p.ClassifierScaler,
		classes:          classes,
		classifierNames:  classifierNames,
		regressor:        p.Regressor,
		regressorScaler:  p.RegressorScaler,
		schema:           p.RegressorSchema,
		sustainability:   sustainability,
		cost:             cost,
	}, nil
}

// checkNames rejects a model whose recorded column order differs from the schema.
func checkNames(model interface{}, schema Schema) error {
	namer, ok := model.(ml.FeatureNamer)
	if !ok || len(namer.FeatureNames()) == 0 {
		return nil
	}
	names := namer.FeatureNames()
	if len(names) != schema.Len() {
		return fmt.Errorf("%w: model names %d columns, schema has %d", ml.ErrDimension, len(names), schema.Len())
	}
	for i, n := range names {
		if idx, ok := schema.Index(n); !ok || idx != i {
			return fmt.Errorf("column %d is %q in the model but not in the schema at that position", i, n)
		}
	}
	return nil
}

func (b *Bundle) Version() string                  { return b.version }
func (b *Bundle) Classifier() ml.Classifier        { return b.classifier }
func (b *Bundle) ClassifierScaler() ml.Transformer { return b.classifierScaler }
func (b *Bundle) Regressor() ml.Regressor          { return b.regressor }
func (b *Bundle) RegressorScaler() ml.Transformer  { return b.regressorScaler }
func (b *Bundle) Schema() Schema                   { return b.schema }

// Classes returns a copy of the classifier's label set in output order.
func (b *Bundle) Classes() []string {
	return append([]string(nil), b.classes...)
}

// ClassifierFeatureOrder is the classifier's recorded input order, or
// ClassifierFeatures when the backend does not record one.
func (b *Bundle) ClassifierFeatureOrder() []string {
	if len(b.classifierNames) > 0 {
		return append([]string(nil), b.classifierNames...)
	}
	return append([]string(nil), ClassifierFeatures...)
}

func (b *Bundle) Sustainability(label string) (float64, bool) {
	score, ok := b.sustainability[label]
	return score, ok
}

func (b *Bundle) CultivationCost(label string) (float64, bool) {
	c, ok := b.cost[label]
	return c, ok
}

// MissingSustainability lists classifier labels with no sustainability score, sorted.
func (b *Bundle) MissingSustainability() []string {
	var missing []string
	for _, c := range b.classes {
		if _, ok := b.sustainability[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// MissingCost lists classifier labels that will be scored with zero cost.
func (b *Bundle) MissingCost() []string {
	var missing []string
	for _, c := range b.classes {
		if _, ok := b.cost[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// Close releases backends that hold native resources.
func (b *Bundle) Close() error {
	var first error
	for _, m := range []interface{}{b.classifier, b.classifierScaler, b.regressor, b.regressorScaler} {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
