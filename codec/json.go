package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is larger and slower than Binary but the artifacts stay greppable,
// which helps when validating a freshly built dataset. Both sides of the
// artifact pair must use the same codec.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
