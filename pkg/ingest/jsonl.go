package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// JSONLDecoder reads newline-delimited JSON objects. Two shapes are
// accepted on any line:
//
//	{"entity": "apple", "attributes": {"color": "red", "shape": "round"}}
//	{"entity": "apple", "key": "color", "value": "red"}
//
// Attribute maps are expanded in key order. Non-string scalars are kept
// in their JSON text form; null becomes the empty string.
type JSONLDecoder struct {
	dec     *json.Decoder
	line    int
	pending []Record
}

// NewJSONLDecoder constructs a decoder over r.
func NewJSONLDecoder(r io.Reader) *JSONLDecoder {
	return &JSONLDecoder{dec: json.NewDecoder(r)}
}

// Next returns the next record.
func (d *JSONLDecoder) Next() (Record, error) {
	for len(d.pending) == 0 {
		var obj map[string]json.RawMessage
		if err := d.dec.Decode(&obj); err != nil {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("jsonl object %d: decode: %w", d.line+1, err)
		}
		d.line++

		records, err := expand(obj)
		if err != nil {
			return Record{}, fmt.Errorf("jsonl object %d: %w", d.line, err)
		}
		d.pending = records
	}

	rec := d.pending[0]
	d.pending = d.pending[1:]
	return rec, nil
}

func expand(obj map[string]json.RawMessage) ([]Record, error) {
	if obj == nil {
		return nil, errors.New("expected an object")
	}

	rawEntity, ok := obj["entity"]
	if !ok {
		return nil, errors.New(`missing "entity"`)
	}
	entity, err := scalar(rawEntity)
	if err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}

	if rawAttrs, ok := obj["attributes"]; ok {
		var attrs map[string]json.RawMessage
		if err := json.Unmarshal(rawAttrs, &attrs); err != nil {
			return nil, fmt.Errorf("attributes: %w", err)
		}
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]Record, 0, len(keys))
		for _, k := range keys {
			v, err := scalar(attrs[k])
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			records = append(records, Record{Entity: entity, Key: k, Value: v})
		}
		return records, nil
	}

	rawKey, ok := obj["key"]
	if !ok {
		return nil, errors.New(`expected "attributes" or "key"`)
	}
	key, err := scalar(rawKey)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	value := ""
	if rawValue, ok := obj["value"]; ok {
		if value, err = scalar(rawValue); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
	}
	return []Record{{Entity: entity, Key: key, Value: value}}, nil
}

// scalar renders a JSON scalar as text. Objects and arrays are refused.
func scalar(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	switch {
	case text == "null":
		return "", nil
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case strings.HasPrefix(text, "{"), strings.HasPrefix(text, "["):
		return "", errors.New("expected a scalar value")
	default:
		return text, nil
	}
}
