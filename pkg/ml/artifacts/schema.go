package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Schema is the ordered column list the yield regressor was trained on.
// Its hash identifies the training/serving contract.
type Schema struct {
	version string
	columns []string
	index   map[string]int
}

func NewSchema(version string, columns []string) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("schema has no columns")
	}
	cols := make([]string, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if name == "" {
			return Schema{}, fmt.Errorf("schema column %d is blank", i)
		}
		if _, dup := index[name]; dup {
			return Schema{}, fmt.Errorf("schema column %q appears twice", name)
		}
		cols[i] = name
		index[name] = i
	}
	return Schema{version: version, columns: cols, index: index}, nil
}

func (s Schema) Version() string { return s.version }

func (s Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the ordered column names.
func (s Schema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s Schema) Index(column string) (int, bool) {
	i, ok := s.index[column]
	return i, ok
}

// Hash is the hex SHA-256 of the column names joined by newlines.
func (s Schema) Hash() string {
	return HashColumns(s.columns)
}

func HashColumns(columns []string) string {
	sum := sha256.Sum256([]byte(strings.Join(columns, "\n")))
	return hex.EncodeToString(sum[:])
}
