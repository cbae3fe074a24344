package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestJSONLDecoder(t *testing.T) {
	input := strings.Join([]string{
		`{"entity": "apple", "attributes": {"shape": "round", "color": "red"}}`,
		`{"entity": "pear", "key": "weight", "value": 1.5}`,
		`{"entity": "pear", "key": "ripe", "value": true}`,
		`{"entity": "plum", "key": "note", "value": null}`,
		`{"entity": 42, "key": "id"}`,
	}, "\n")

	want := []Record{
		{Entity: "apple", Key: "color", Value: "red"},
		{Entity: "apple", Key: "shape", Value: "round"},
		{Entity: "pear", Key: "weight", Value: "1.5"},
		{Entity: "pear", Key: "ripe", Value: "true"},
		{Entity: "plum", Key: "note", Value: ""},
		{Entity: "42", Key: "id", Value: ""},
	}

	got := drain(t, NewJSONLDecoder(strings.NewReader(input)))
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v\nwant %+v", got, want)
	}
}

func TestJSONLDecoder_EmptyAttributes(t *testing.T) {
	input := `{"entity": "apple", "attributes": {}}` + "\n" + `{"entity": "pear", "key": "k", "value": "v"}`

	got := drain(t, NewJSONLDecoder(strings.NewReader(input)))
	if len(got) != 1 || got[0].Entity != "pear" {
		t.Errorf("expected the empty attribute map to yield nothing, got %+v", got)
	}
}

func TestJSONLDecoder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid json", input: `{"entity": `},
		{name: "missing entity", input: `{"key": "k", "value": "v"}`},
		{name: "no key or attributes", input: `{"entity": "apple"}`},
		{name: "nested value", input: `{"entity": "apple", "key": "k", "value": {"a": 1}}`},
		{name: "array line", input: `["apple"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJSONLDecoder(strings.NewReader(tt.input)).Next(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path, format, want string
	}{
		{"data/in.csv", "", FormatCSV},
		{"data/in.jsonl", "", FormatJSONL},
		{"data/in.NDJSON", "", FormatJSONL},
		{"data/in.txt", "", FormatCSV},
		{"data/in.csv", "JSONL", FormatJSONL},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path, tt.format); got != tt.want {
			t.Errorf("DetectFormat(%q, %q) = %q, want %q", tt.path, tt.format, got, tt.want)
		}
	}
}
