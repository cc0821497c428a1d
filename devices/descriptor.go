package devices

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Descriptor is the raw record the server returns for one device.
// Key order is preserved from the wire so classification is deterministic.
type Descriptor struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewDescriptor builds a descriptor from ordered key/value pairs, mainly for tests
// and for callers assembling records by hand. Values are JSON-encoded.
func NewDescriptor(pairs ...any) (Descriptor, error) {
	if len(pairs)%2 != 0 {
		return Descriptor{}, fmt.Errorf("descriptor: odd number of arguments")
	}
	d := Descriptor{values: make(map[string]json.RawMessage, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return Descriptor{}, fmt.Errorf("descriptor: key %v is not a string", pairs[i])
		}
		raw, err := json.Marshal(pairs[i+1])
		if err != nil {
			return Descriptor{}, fmt.Errorf("descriptor: encode %q: %w", key, err)
		}
		d.set(key, raw)
	}
	return d, nil
}

func (d *Descriptor) set(key string, raw json.RawMessage) {
	if d.values == nil {
		d.values = make(map[string]json.RawMessage)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
}

// Keys returns the attribute names in server order
func (d Descriptor) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of attributes
func (d Descriptor) Len() int {
	return len(d.keys)
}

// Has reports whether key is present
func (d Descriptor) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Raw returns the undecoded JSON value for key
func (d Descriptor) Raw(key string) (json.RawMessage, bool) {
	raw, ok := d.values[key]
	return raw, ok
}

// Value decodes key into a generic Go value (map[string]any, []any, string, float64, bool or nil)
func (d Descriptor) Value(key string) (any, bool) {
	raw, ok := d.values[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// String returns key as a string. Numbers are rendered in their JSON form,
// since the API is not consistent about quoting IDs.
func (d Descriptor) String(key string) string {
	raw, ok := d.values[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Decode unmarshals key into out
func (d Descriptor) Decode(key string, out any) error {
	raw, ok := d.values[key]
	if !ok {
		return fmt.Errorf("descriptor: no attribute %q", key)
	}
	return json.Unmarshal(raw, out)
}

// Map returns a decoded copy of all attributes
func (d Descriptor) Map() map[string]any {
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		v, _ := d.Value(k)
		out[k] = v
	}
	return out
}

// UnmarshalJSON reads a JSON object, keeping top-level key order
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("descriptor: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("descriptor: expected object, got %v", tok)
	}

	*d = Descriptor{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("descriptor: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("descriptor: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("descriptor: value for %q: %w", key, err)
		}
		d.set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("descriptor: %w", err)
	}
	return nil
}

// MarshalJSON writes the attributes back in their original order
func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(d.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
