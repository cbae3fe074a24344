package pivot

import "time"

// Report summarizes one export run.
type Report struct {
	RunID        string         `json:"run_id"`
	Sink         string         `json:"sink"`
	Columns      []string       `json:"columns"`
	Entities     int            `json:"entities"`
	Chunks       int            `json:"chunks"`
	RowsWritten  int            `json:"rows_written"`
	Failed       []ChunkFailure `json:"failed_chunks,omitempty"`
	SinkFailures int            `json:"sink_failures"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
}

// ChunkFailure records a chunk whose rows are missing from the output.
type ChunkFailure struct {
	Index int     `json:"index"`
	IDs   []int64 `json:"ids"`
	Error string  `json:"error"`
}

// OK reports whether every chunk and batch made it to the sink.
func (r *Report) OK() bool {
	return len(r.Failed) == 0 && r.SinkFailures == 0
}
