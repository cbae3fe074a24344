package pivot

import (
	"errors"
	"reflect"
	"testing"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		ids       []int64
		chunkSize int
		want      [][]int64
	}{
		{
			name:      "uneven split",
			ids:       []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			chunkSize: 3,
			want:      [][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10}},
		},
		{
			name:      "even split",
			ids:       []int64{9, 8, 7, 6},
			chunkSize: 2,
			want:      [][]int64{{9, 8}, {7, 6}},
		},
		{
			name:      "chunk larger than input",
			ids:       []int64{1, 2},
			chunkSize: 100,
			want:      [][]int64{{1, 2}},
		},
		{
			name:      "chunk size one",
			ids:       []int64{3, 2, 1},
			chunkSize: 1,
			want:      [][]int64{{3}, {2}, {1}},
		},
		{
			name:      "empty input",
			ids:       nil,
			chunkSize: 5,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Partition(tt.ids, tt.chunkSize)
			if err != nil {
				t.Fatalf("Partition() error = %v", err)
			}

			if len(chunks) != len(tt.want) {
				t.Fatalf("Partition() returned %d chunks, want %d", len(chunks), len(tt.want))
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has Index %d", i, c.Index)
				}
				if !reflect.DeepEqual(c.IDs, tt.want[i]) {
					t.Errorf("chunk %d = %v, want %v", i, c.IDs, tt.want[i])
				}
			}
		})
	}
}

func TestPartition_InvalidChunkSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Partition([]int64{1, 2, 3}, size)
		if !errors.Is(err, ErrInvalidChunkSize) {
			t.Errorf("Partition(size=%d) error = %v, want ErrInvalidChunkSize", size, err)
		}
	}
}

func TestPartition_UnionMatchesInput(t *testing.T) {
	ids := make([]int64, 0, 997)
	for i := int64(997); i > 0; i-- {
		ids = append(ids, i)
	}

	chunks, err := Partition(ids, 50)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(chunks) != 20 {
		t.Errorf("Expected 20 chunks, got %d", len(chunks))
	}

	seen := make(map[int64]bool, len(ids))
	var flat []int64
	for i, c := range chunks {
		if i < len(chunks)-1 && len(c.IDs) != 50 {
			t.Errorf("chunk %d has %d ids, want 50", i, len(c.IDs))
		}
		for _, id := range c.IDs {
			if seen[id] {
				t.Errorf("id %d appears twice", id)
			}
			seen[id] = true
			flat = append(flat, id)
		}
	}
	if !reflect.DeepEqual(flat, ids) {
		t.Error("Concatenated chunks differ from input")
	}
}

func TestPartition_ChunksDoNotAlias(t *testing.T) {
	ids := []int64{1, 2, 3, 4}

	chunks, err := Partition(ids, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	_ = append(chunks[0].IDs, 99)
	if chunks[1].IDs[0] != 3 {
		t.Errorf("append to chunk 0 overwrote chunk 1: %v", chunks[1].IDs)
	}
}
