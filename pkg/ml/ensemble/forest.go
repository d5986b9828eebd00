// Package ensemble evaluates random-forest models exported as flat node
// arrays (one entry per sklearn tree node).
package ensemble

import (
	"fmt"

	"github.com/agri-advisor/platform/pkg/ml"
)

const leaf = -1

// Node follows sklearn's tree_ layout: x[Feature] <= Threshold goes Left.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) validate(width, valueLen int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Left == leaf || n.Right == leaf {
			if n.Left != n.Right {
				return fmt.Errorf("node %d has a single child", i)
			}
			if len(n.Value) != valueLen {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), valueLen)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d outside [0,%d)", i, n.Feature, width)
		}
		// children always come after their parent in sklearn's depth-first export
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

func (t Tree) evaluate(x []float64) []float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// ForestRegressor averages the leaf value of every tree.
type ForestRegressor struct {
	Names []string `json:"feature_names,omitempty"`
	Width int      `json:"n_features"`
	Trees []Tree   `json:"trees"`
}

func (f *ForestRegressor) Validate() error {
	if f.Width <= 0 {
		return fmt.Errorf("forest has no feature width")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if len(f.Names) > 0 && len(f.Names) != f.Width {
		return fmt.Errorf("forest names %d features, width is %d", len(f.Names), f.Width)
	}
	for i, t := range f.Trees {
		if err := t.validate(f.Width, 1); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *ForestRegressor) Dim() int               { return f.Width }
func (f *ForestRegressor) FeatureNames() []string { return f.Names }

func (f *ForestRegressor) Predict(x []float64) (float64, error) {
	if err := ml.CheckDim(f.Width, len(x)); err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.evaluate(x)[0]
	}
	return sum / float64(len(f.Trees)), nil
}

// ForestClassifier averages per-tree class distributions. Leaf values may be
// raw class counts; each is normalised before averaging.
type ForestClassifier struct {
	Labels []string `json:"classes"`
	Names  []string `json:"feature_names,omitempty"`
	Width  int      `json:"n_features"`
	Trees  []Tree   `json:"trees"`
}

func (f *ForestClassifier) Validate() error {
	if len(f.Labels) < 2 {
		return fmt.Errorf("forest needs at least two classes, has %d", len(f.Labels))
	}
	if f.Width <= 0 {
		return fmt.Errorf("forest has no feature width")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if len(f.Names) > 0 && len(f.Names) != f.Width {
		return fmt.Errorf("forest names %d features, width is %d", len(f.Names), f.Width)
	}
	for i, t := range f.Trees {
		if err := t.validate(f.Width, len(f.Labels)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *ForestClassifier) Dim() int               { return f.Width }
func (f *ForestClassifier) FeatureNames() []string { return f.Names }

func (f *ForestClassifier) Classes() []string {
	out := make([]string, len(f.Labels))
	copy(out, f.Labels)
	return out
}

func (f *ForestClassifier) PredictProba(x []float64) ([]float64, error) {
	if err := ml.CheckDim(f.Width, len(x)); err != nil {
		return nil, err
	}
	out := make([]float64, len(f.Labels))
	for _, t := range f.Trees {
		counts := t.evaluate(x)
		var total float64
		for _, c := range counts {
			total += c
		}
		if total <= 0 {
			return nil, fmt.Errorf("leaf with empty class distribution")
		}
		for i, c := range counts {
			out[i] += c / total
		}
	}
	for i := range out {
		out[i] /= float64(len(f.Trees))
	}
	return out, nil
}
