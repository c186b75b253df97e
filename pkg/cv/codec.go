package cv

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a document for persistence, stamping the schema version.
func Encode(d Data) ([]byte, error) {
	d.Version = SchemaVersion
	return json.Marshal(d)
}

// Decode parses a persisted blob. Blobs of another schema version are
// rejected instead of being read with the wrong shape.
func Decode(blob []byte) (Data, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(blob, &probe); err != nil {
		return Data{}, fmt.Errorf("decode cv: %w", err)
	}
	if probe.Version != SchemaVersion {
		return Data{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, probe.Version)
	}
	var d Data
	if err := json.Unmarshal(blob, &d); err != nil {
		return Data{}, fmt.Errorf("decode cv: %w", err)
	}
	return d, nil
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	blob, err := json.Marshal(d)
	if err != nil {
		return d
	}
	var out Data
	if err := json.Unmarshal(blob, &out); err != nil {
		return d
	}
	return out
}
