package bench

import (
	"math/rand"

	"github.com/btree-query-bench/verdant/index"
	"github.com/cockroachdb/errors"
)

type Workload string

const (
	OLTP      Workload = "OLTP (90/10)"
	OLAP      Workload = "OLAP (10/90)"
	Reporting Workload = "Reporting (Range)"
	Churn     Workload = "Churn (50/50)"
)

// Workloads lists every workload in the order a suite runs them.
var Workloads = []Workload{OLTP, OLAP, Reporting, Churn}

// Stats counts what a workload did.
type Stats struct {
	Reads   int
	Misses  int
	Writes  int
	Deletes int
	Scanned int
}

var payload = []byte("x")

// Execute runs ops operations of the given mix against idx. Keys are drawn
// uniformly from [0, ops); Reporting scans span keys from each start.
func Execute(idx index.Index, wl Workload, ops int, rng *rand.Rand, span int64) (Stats, error) {
	var st Stats
	if ops <= 0 {
		return st, nil
	}
	get := func(key int64) error {
		st.Reads++
		if _, err := idx.Get(key); err != nil {
			if !errors.Is(err, index.ErrNotFound) {
				return err
			}
			st.Misses++
		}
		return nil
	}
	put := func(key int64) error {
		st.Writes++
		return idx.Insert(key, payload)
	}

	for i := 0; i < ops; i++ {
		choice := rng.Intn(100)
		key := int64(rng.Intn(ops))

		var err error
		switch wl {
		case OLTP:
			if choice < 90 {
				err = get(key)
			} else {
				err = put(key)
			}
		case OLAP:
			if choice < 10 {
				err = get(key)
			} else {
				err = put(key)
			}
		case Reporting:
			err = scan(idx, key, key+span, &st)
		case Churn:
			if choice < 50 {
				err = put(key)
			} else {
				st.Deletes++
				if err = idx.Delete(key); errors.Is(err, index.ErrNotFound) {
					st.Misses++
					err = nil
				}
			}
		default:
			return st, errors.Newf("bench: unknown workload %q", wl)
		}
		if err != nil {
			return st, errors.Wrapf(err, "bench: %s op %d", wl, i)
		}
	}
	return st, nil
}

func scan(idx index.Index, lo, hi int64, st *Stats) error {
	it, err := idx.Range(lo, hi)
	if err != nil {
		return err
	}
	for it.Next() {
		st.Scanned++
	}
	if err := it.Error(); err != nil {
		it.Close()
		return err
	}
	return it.Close()
}
