package pivot

import "errors"

// ErrInvalidChunkSize is returned by Partition when the chunk size is not
// positive.
var ErrInvalidChunkSize = errors.New("chunk size must be greater than zero")

// Chunk is a contiguous slice of entity ids handled by one worker.
type Chunk struct {
	// Index is the position of the chunk in the partition.
	Index int `json:"index"`

	// IDs are the entity ids of the chunk, in input order.
	IDs []int64 `json:"ids"`
}

// Partition splits ids into ceil(len(ids)/chunkSize) contiguous chunks.
// Every chunk holds exactly chunkSize ids except possibly the last.
// The chunks share the backing array of ids; their capacity is capped so an
// append to one chunk never overwrites the next.
func Partition(ids []int64, chunkSize int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}

	chunks := make([]Chunk, 0, (len(ids)+chunkSize-1)/chunkSize)
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			IDs:   ids[start:end:end],
		})
	}

	return chunks, nil
}
