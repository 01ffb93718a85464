// Package bench drives the index benchmark: it loads each index, runs the
// workload mixes against it, records latency and heap figures as CSV and
// renders a chart.
package bench

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/btree-query-bench/verdant/index"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Suite describes one index under test.
type Suite struct {
	Name   string
	Config int
	Index  index.Index
	// Keys is the number of keys loaded before the workloads run.
	Keys int
	Span int64
}

type checker interface {
	Check() error
}

func perOp(d time.Duration, ops int) int64 {
	return d.Nanoseconds() / int64(max(ops, 1))
}

// RunSuite loads s.Index with s.Keys sequential keys, samples the heap, then
// runs every workload. Indexes that can check their own structure are
// validated at the end.
func RunSuite(rec *Recorder, s Suite, rng *rand.Rand, log logrus.FieldLogger) error {
	log = log.WithFields(logrus.Fields{"structure": s.Name, "config": s.Config})
	log.Info("running suite")
	conf := strconv.Itoa(s.Config)
	n := s.Keys

	// 1. Pure insert (initial load)
	start := time.Now()
	for k := 0; k < n; k++ {
		if err := s.Index.Insert(int64(k), payload); err != nil {
			return errors.Wrapf(err, "bench: %s load key %d", s.Name, k)
		}
	}
	loadLatency := perOp(time.Since(start), n)

	// Memory is sampled right after the load, before any workload runs.
	stats := GetDetailedMem()
	if err := rec.Record(BenchResult{
		Name:      s.Name,
		Config:    conf,
		Operation: "Footprint_SteadyState",
		LatencyNs: loadLatency,
		MemMB:     stats.AllocMB,
		Objects:   stats.HeapObjects,
	}); err != nil {
		return err
	}

	for _, wl := range Workloads {
		ops := n / 2
		if wl == Reporting {
			ops = min(n, 100)
		}
		start = time.Now()
		st, err := Execute(s.Index, wl, ops, rng, s.Span)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		log.WithFields(logrus.Fields{
			"workload": string(wl),
			"ops":      ops,
			"reads":    st.Reads,
			"misses":   st.Misses,
			"writes":   st.Writes,
			"deletes":  st.Deletes,
			"scanned":  st.Scanned,
			"took":     elapsed,
		}).Debug("workload done")

		if err := rec.Record(BenchResult{
			Name:      s.Name,
			Config:    conf,
			Operation: operationName(wl),
			LatencyNs: perOp(elapsed, ops),
			MemMB:     GetDetailedMem().AllocMB,
		}); err != nil {
			return err
		}
	}

	if c, ok := s.Index.(checker); ok {
		if err := c.Check(); err != nil {
			return errors.Wrapf(err, "bench: %s failed validation", s.Name)
		}
		log.Debug("structure validated")
	}
	return nil
}

func operationName(wl Workload) string {
	switch wl {
	case OLTP:
		return "Workload_OLTP"
	case OLAP:
		return "Workload_OLAP"
	case Reporting:
		return "Workload_Range"
	case Churn:
		return "Workload_Churn"
	}
	return string(wl)
}
