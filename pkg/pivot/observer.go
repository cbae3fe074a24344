package pivot

import "time"

// Observer receives export events. Implementations must be safe for use
// from the goroutine that drains the export; calls are never concurrent.
type Observer interface {
	// StateChanged is called on every state transition.
	StateChanged(state State)

	// ChunkCompleted is called once per drained chunk.
	ChunkCompleted(index int, rows int, duration time.Duration, err error)

	// RowsWritten is called after each batch with the number of rows the
	// sink accepted.
	RowsWritten(sink string, rows int)

	// ExportCompleted is called when the run ends, successfully or not.
	ExportCompleted(report *Report, err error)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State)                           {}
func (nopObserver) ChunkCompleted(int, int, time.Duration, error) {}
func (nopObserver) RowsWritten(string, int)                       {}
func (nopObserver) ExportCompleted(*Report, error)                {}
