package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/peakwhale/harbor/pkg/errors"
)

// FeatureRow holds one value per schema feature, in schema order.
// The zero value is empty; rows are only built through Schema.BuildRow and
// Schema.BuildRowFromStrings.
type FeatureRow struct {
	names  []string
	values []float64
}

// Len returns the number of values in the row.
func (r FeatureRow) Len() int { return len(r.values) }

// Values returns a copy of the values in schema order.
func (r FeatureRow) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value of the named feature.
func (r FeatureRow) Get(name string) (float64, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return 0, false
}

// Map returns the row as a name -> value map.
func (r FeatureRow) Map() map[string]float64 {
	m := make(map[string]float64, len(r.values))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// Matrix returns the row as a 1×n matrix in schema column order.
func (r FeatureRow) Matrix() *mat.Dense {
	return mat.NewDense(1, len(r.values), r.Values())
}

// MarshalJSON encodes the row as an object whose keys follow schema order.
func (r FeatureRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v := r.values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Newf("schema: feature %s has non-finite value %v", n, v)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BuildRow validates a decoded JSON object against the schema.
//
// Every absent feature is reported at once, in schema order. Present values
// must be JSON numbers or numeric strings; keys outside the schema are ignored.
func (s *Schema) BuildRow(input map[string]any) (FeatureRow, error) {
	if missing := s.missing(func(name string) bool {
		_, ok := input[name]
		return ok
	}); len(missing) > 0 {
		return FeatureRow{}, errors.NewMissingFeaturesError(missing)
	}

	values := make([]float64, len(s.names))
	for i, name := range s.names {
		v, err := toFloat(name, input[name])
		if err != nil {
			return FeatureRow{}, err
		}
		values[i] = v
	}
	return FeatureRow{names: s.names, values: values}, nil
}

// BuildRowFromStrings validates submitted form values against the schema.
// A feature submitted as an empty string is rejected as an invalid value.
func (s *Schema) BuildRowFromStrings(input map[string]string) (FeatureRow, error) {
	if missing := s.missing(func(name string) bool {
		_, ok := input[name]
		return ok
	}); len(missing) > 0 {
		return FeatureRow{}, errors.NewMissingFeaturesError(missing)
	}

	values := make([]float64, len(s.names))
	for i, name := range s.names {
		v, err := parseString(name, input[name])
		if err != nil {
			return FeatureRow{}, err
		}
		values[i] = v
	}
	return FeatureRow{names: s.names, values: values}, nil
}

// RowFromValues builds a row from values already in schema order.
func (s *Schema) RowFromValues(values []float64) (FeatureRow, error) {
	if len(values) != len(s.names) {
		return FeatureRow{}, errors.NewDimensionError("schema.RowFromValues", len(s.names), len(values), 1)
	}
	out := make([]float64, len(values))
	copy(out, values)
	return FeatureRow{names: s.names, values: out}, nil
}

func (s *Schema) missing(present func(string) bool) []string {
	var missing []string
	for _, name := range s.names {
		if !present(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func toFloat(field string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errors.NewInvalidFeatureError(field, raw, "invalid number")
		}
		return f, nil
	case string:
		return parseString(field, v)
	case nil:
		return 0, errors.NewInvalidFeatureError(field, raw, "null value")
	default:
		return 0, errors.NewInvalidFeatureError(field, raw, "could not convert value to float")
	}
}

func parseString(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.NewInvalidFeatureError(field, raw, "empty value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewInvalidFeatureError(field, raw, "could not convert string to float")
	}
	return f, nil
}
