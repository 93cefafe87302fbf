package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Reserved sub-section keys shared by every shape.
const (
	KeyPoints      = "points"
	KeyRemarks     = "remarks"
	KeyLastUpdated = "lastUpdated"
)

// Subsection is one named field group inside a category. Fields holds the
// shape-specific data (scalars, arrays and nested objects) keyed by field
// name; the three cross-cutting fields are carried separately.
//
// It encodes as a single flat JSON object.
type Subsection struct {
	Fields      map[string]any
	Points      float64
	Remarks     string
	LastUpdated time.Time
}

// NewSubsection returns an empty sub-section.
func NewSubsection() *Subsection {
	return &Subsection{Fields: map[string]any{}}
}

// Get returns the raw value stored for key.
func (s *Subsection) Get(key string) any {
	if s == nil || s.Fields == nil {
		return nil
	}
	return s.Fields[key]
}

// Flatten returns the sub-section as one map, reserved keys included.
func (s *Subsection) Flatten() map[string]any {
	out := make(map[string]any, len(s.Fields)+3)
	for k, v := range s.Fields {
		out[k] = v
	}
	out[KeyPoints] = s.Points
	out[KeyRemarks] = s.Remarks
	if !s.LastUpdated.IsZero() {
		out[KeyLastUpdated] = s.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (s Subsection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flatten())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Subsection) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return eris.Wrap(err, "model: decode subsection")
	}
	fields, points, remarks, updated, err := splitReserved(raw)
	if err != nil {
		return err
	}
	*s = Subsection{Fields: fields, Points: points, Remarks: remarks, LastUpdated: updated}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Subsection) MarshalYAML() (any, error) {
	return s.Flatten(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Values are normalized to the
// JSON decoder's types so YAML and JSON input score identically.
func (s *Subsection) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return eris.Wrap(err, "model: decode subsection")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return eris.Wrap(err, "model: normalize subsection")
	}
	return s.UnmarshalJSON(b)
}

func splitReserved(raw map[string]any) (map[string]any, float64, string, time.Time, error) {
	fields := make(map[string]any, len(raw))
	var (
		points  float64
		remarks string
		updated time.Time
	)
	for k, v := range raw {
		switch k {
		case KeyPoints:
			if n, ok := v.(float64); ok {
				points = n
			}
		case KeyRemarks:
			if str, ok := v.(string); ok {
				remarks = str
			}
		case KeyLastUpdated:
			str, ok := v.(string)
			if !ok || str == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, str)
			if err != nil {
				return nil, 0, "", time.Time{}, eris.Wrapf(err, "model: parse lastUpdated %q", str)
			}
			updated = t.UTC()
		default:
			fields[k] = v
		}
	}
	return fields, points, remarks, updated, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() (*Record, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "model: clone record")
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, eris.Wrap(err, "model: clone record")
	}
	return &out, nil
}
