package bench

import (
	"encoding/csv"
	"io"
	"runtime"
	"strconv"

	"github.com/cockroachdb/errors"
)

// BenchResult is one row of the results file.
type BenchResult struct {
	Name      string
	Config    string
	Operation string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem forces a GC so the numbers reflect live data, then samples
// the heap.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

var header = []string{"Structure", "Config", "TestType", "LatencyNs", "MemMB", "HeapObjects"}

// Recorder writes results as CSV and keeps them for plotting.
type Recorder struct {
	w       *csv.Writer
	results []BenchResult
}

// NewRecorder writes the CSV header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, errors.Wrap(err, "bench: write header")
	}
	return &Recorder{w: cw}, nil
}

func (r *Recorder) Record(res BenchResult) error {
	r.results = append(r.results, res)
	err := r.w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
	return errors.Wrap(err, "bench: record")
}

func (r *Recorder) Results() []BenchResult { return r.results }

func (r *Recorder) Flush() error {
	r.w.Flush()
	return errors.Wrap(r.w.Error(), "bench: flush")
}
