package compute

import (
	"bytes"
	"encoding/json"
)

// pair is one key/value entry of an OrderedMap.
type pair struct {
	key   string
	value float64
}

// OrderedMap marshals to a JSON object whose keys appear in insertion
// order. Plain Go maps do not preserve order, so every computation that
// returns a state- or category-keyed result builds one of these instead of
// a map[string]float64.
type OrderedMap struct {
	pairs []pair
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{}
}

// Set appends a key/value pair. Callers are responsible for inserting keys
// in the order they should appear in the marshaled object.
func (m *OrderedMap) Set(key string, value float64) {
	m.pairs = append(m.pairs, pair{key: key, value: value})
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.pairs)
}

// MarshalJSON renders the pairs as a JSON object preserving insertion
// order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
