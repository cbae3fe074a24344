package eav

import (
	"reflect"
	"testing"
)

func TestMergeColumns(t *testing.T) {
	tests := []struct {
		name     string
		priority []string
		keys     []string
		want     []string
	}{
		{
			name:     "priority first",
			priority: []string{"shape"},
			keys:     []string{"color", "shape"},
			want:     []string{"shape", "color"},
		},
		{
			name:     "priority deduplicated in place",
			priority: []string{"b", "a", "b"},
			keys:     []string{"c"},
			want:     []string{"b", "a", "c"},
		},
		{
			name:     "priority key absent from store is kept",
			priority: []string{"sku"},
			keys:     []string{"color"},
			want:     []string{"sku", "color"},
		},
		{
			name: "no priority keeps store order",
			keys: []string{"z", "a", "m"},
			want: []string{"z", "a", "m"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeColumns(tt.priority, tt.keys)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeColumns() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeColumns_Deterministic(t *testing.T) {
	priority := []string{"shape", "weight"}
	keys := []string{"color", "shape", "origin"}

	first := MergeColumns(priority, keys)
	for i := 0; i < 10; i++ {
		if got := MergeColumns(priority, keys); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %v, want %v", i, got, first)
		}
	}
}

func TestMergeColumns_DoesNotAliasPriority(t *testing.T) {
	priority := []string{"a"}
	got := MergeColumns(priority, []string{"b"})
	got[0] = "changed"

	if priority[0] != "a" {
		t.Errorf("priority slice was modified: %v", priority)
	}
}
