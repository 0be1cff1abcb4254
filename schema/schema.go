// Package schema defines the fixed, ordered feature schema of the housing
// model and turns loosely typed request input into validated feature rows.
//
// Column order is the one correctness invariant shared by the trainer and the
// server: the scaler and the model are fitted on columns in Names() order, and
// Row.Matrix() always lays values out in that same order regardless of the
// order of keys in the input.
package schema

import (
	"github.com/peakwhale/harbor/pkg/errors"
)

// Feature describes one named numeric input column.
type Feature struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Placeholder string `json:"placeholder"`
	Step        string `json:"step"`
}

// Target describes the predicted variable.
type Target struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Units       string `json:"units"`
}

// Schema is an immutable ordered list of features plus target metadata.
type Schema struct {
	features []Feature
	names    []string
	index    map[string]int
	target   Target
}

// New builds a Schema. Feature names must be non-empty and unique.
func New(features []Feature, target Target) (*Schema, error) {
	if len(features) == 0 {
		return nil, errors.New("schema: at least one feature is required")
	}
	if target.Name == "" {
		return nil, errors.New("schema: target name is required")
	}

	s := &Schema{
		features: make([]Feature, len(features)),
		names:    make([]string, len(features)),
		index:    make(map[string]int, len(features)),
		target:   target,
	}
	copy(s.features, features)
	for i, f := range features {
		if f.Name == "" {
			return nil, errors.Newf("schema: feature %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errors.Newf("schema: duplicate feature %q", f.Name)
		}
		if f.Name == target.Name {
			return nil, errors.Newf("schema: feature %q collides with the target", f.Name)
		}
		s.index[f.Name] = i
		s.names[i] = f.Name
	}
	return s, nil
}

// Len returns the number of features.
func (s *Schema) Len() int { return len(s.features) }

// Features returns a copy of the feature metadata in schema order.
func (s *Schema) Features() []Feature {
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Names returns a copy of the feature names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Target returns the target metadata.
func (s *Schema) Target() Target { return s.target }

// Columns returns the feature names followed by the target name, the full
// set of columns a training dataset has to provide.
func (s *Schema) Columns() []string {
	return append(s.Names(), s.target.Name)
}
