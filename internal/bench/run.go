package bench

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/btree-query-bench/verdant/index/btree"
	"github.com/btree-query-bench/verdant/index/listindex"
	"github.com/btree-query-bench/verdant/index/lsm"
	"github.com/btree-query-bench/verdant/internal/config"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Run executes the full sweep described by cfg: the B-tree at every order,
// the sorted-list baseline, Pebble at every memtable size and the table
// store. Results go to cfg.ResultsCSV and, when set, a chart to cfg.PlotPath.
func Run(cfg *config.Config, log logrus.FieldLogger) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return errors.Wrap(err, "bench: create data dir")
	}
	f, err := os.Create(cfg.ResultsCSV)
	if err != nil {
		return errors.Wrap(err, "bench: create results file")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	rec, err := NewRecorder(f)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	span := int64(cfg.RangeSpan)

	// 1. Sweep the B-tree orders.
	for _, order := range cfg.Orders {
		m := btree.NewMap(order)
		if err := RunSuite(rec, Suite{Name: "B-Tree", Config: order, Index: m, Keys: cfg.Scale, Span: span}, rng, log); err != nil {
			return err
		}
		t := m.Tree()
		log.WithFields(logrus.Fields{
			"order":         order,
			"height":        t.Height(),
			"nodes":         t.CountNodes(),
			"keys_per_node": fmt.Sprintf("%.1f", t.AverageKeysPerNode()),
		}).Info("b-tree shape")
	}

	// 2. Sorted list baseline.
	if cfg.ListScale > 0 {
		n := min(cfg.Scale, cfg.ListScale)
		if err := RunSuite(rec, Suite{Name: "List", Index: listindex.NewListIndex(), Keys: n, Span: span}, rng, log); err != nil {
			return err
		}
	}

	// 3. Sweep Pebble memtable sizes.
	for _, size := range cfg.MemtableSizes {
		if err := runLSM(rec, cfg, size, rng, log); err != nil {
			return err
		}
	}

	// 4. Record store.
	if cfg.TableRows > 0 {
		path := filepath.Join(cfg.DataDir, "accounts.tbl")
		if err := RunTable(rec, path, cfg.TableRows, rng, span, log); err != nil {
			return err
		}
	}

	if err := rec.Flush(); err != nil {
		return err
	}
	log.WithField("file", cfg.ResultsCSV).Info("results written")

	if cfg.PlotPath != "" {
		if err := Plot(rec.Results(), cfg.PlotPath); err != nil {
			return err
		}
		log.WithField("file", cfg.PlotPath).Info("plot written")
	}
	return nil
}

func runLSM(rec *Recorder, cfg *config.Config, size int, rng *rand.Rand, log logrus.FieldLogger) (err error) {
	dir := filepath.Join(cfg.DataDir, fmt.Sprintf("lsm-%d", size))
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "bench: clear lsm dir")
	}
	db, err := lsm.Open(dir, size)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	return RunSuite(rec, Suite{Name: "LSM-Tree", Config: size, Index: db, Keys: cfg.Scale, Span: int64(cfg.RangeSpan)}, rng, log)
}
