package bench

import (
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/btree-query-bench/verdant/table"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var accounts = table.Schema{
	{Name: "id", Type: table.Int},
	{Name: "owner", Type: table.Varchar, Size: 32},
	{Name: "balance", Type: table.Float},
}

// RunTable measures the record store: load, point reads, range scans, deletes
// and the index rebuild on reopen. Any existing file at path is replaced.
func RunTable(rec *Recorder, path string, rows int, rng *rand.Rand, span int64, log logrus.FieldLogger) error {
	log = log.WithFields(logrus.Fields{"structure": "Table", "rows": rows})
	log.Info("running table suite")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "bench: remove old table")
	}

	tbl, err := table.Open(path, accounts, table.Options{Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if tbl != nil {
			tbl.Close()
		}
	}()

	record := func(op string, d time.Duration, ops int) error {
		return rec.Record(BenchResult{
			Name:      "Table",
			Config:    strconv.Itoa(rows),
			Operation: op,
			LatencyNs: perOp(d, ops),
			MemMB:     GetDetailedMem().AllocMB,
		})
	}

	start := time.Now()
	for _, k := range rng.Perm(rows) {
		fields := []string{
			strconv.Itoa(k),
			"owner-" + strconv.Itoa(k),
			strconv.FormatFloat(rng.Float64()*1000, 'f', 2, 32),
		}
		if _, err := tbl.Insert(fields); err != nil {
			return err
		}
	}
	if err := record("Table_Insert", time.Since(start), rows); err != nil {
		return err
	}

	reads := rows / 2
	start = time.Now()
	for i := 0; i < reads; i++ {
		if _, err := tbl.Get(int64(rng.Intn(rows))); err != nil {
			return err
		}
	}
	if err := record("Table_Get", time.Since(start), reads); err != nil {
		return err
	}

	scans := min(rows, 100)
	start = time.Now()
	for i := 0; i < scans; i++ {
		lo := int64(rng.Intn(rows))
		if err := tbl.Scan(lo, lo+span, func([]string) bool { return true }); err != nil {
			return err
		}
	}
	if err := record("Table_Range", time.Since(start), scans); err != nil {
		return err
	}

	deletes := rows / 10
	start = time.Now()
	for k := 0; k < deletes; k++ {
		if err := tbl.Delete(int64(k)); err != nil {
			return err
		}
	}
	if err := record("Table_Delete", time.Since(start), deletes); err != nil {
		return err
	}

	if err := tbl.Close(); err != nil {
		tbl = nil
		return err
	}
	start = time.Now()
	tbl, err = table.Open(path, accounts, table.Options{Logger: log})
	if err != nil {
		return err
	}
	if err := record("Table_Reopen", time.Since(start), tbl.Len()); err != nil {
		return err
	}
	if tbl.Len() != rows-deletes {
		return errors.Newf("bench: table holds %d records after reopen, want %d", tbl.Len(), rows-deletes)
	}
	return tbl.Check()
}
