// Command bmark benchmarks the B-tree index against a sorted list baseline,
// Pebble and the paged record store, writing a CSV of results and a latency
// chart.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/btree-query-bench/verdant/index/btree"
	"github.com/btree-query-bench/verdant/internal/bench"
	"github.com/btree-query-bench/verdant/internal/config"
	"github.com/btree-query-bench/verdant/internal/logging"
	"github.com/cockroachdb/errors"
)

var (
	configPath = flag.String("config", "", "TOML configuration file (defaults are used when empty)")
	dumpDOT    = flag.String("dump-dot", "", "write a Graphviz rendering of a small demo tree to this file and exit")
	demoOrder  = flag.Int("demo-order", 2, "order of the tree written by -dump-dot")
	demoKeys   = flag.Int("demo-keys", 40, "number of keys in the tree written by -dump-dot")
)

func main() {
	flag.Parse()

	if *dumpDOT != "" {
		if err := writeDemoTree(*dumpDOT, *demoOrder, *demoKeys); err != nil {
			fmt.Fprintf(os.Stderr, "bmark: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bmark: %v\n", err)
		os.Exit(2)
	}
	log := logging.New(cfg.LogLevel, os.Stderr)
	if err := bench.Run(cfg, log); err != nil {
		log.WithError(err).Fatal("benchmark failed")
	}
	log.Info("Benchmark complete. Data ready for analysis.")
}

// writeDemoTree inserts keys 1..n into a tree of the given order and renders
// it, so the shape produced by splits and sibling shifts can be inspected
// with `dot -Tpng`.
func writeDemoTree(path string, order, n int) error {
	if order < 1 {
		return errors.Newf("demo order must be at least 1, got %d", order)
	}
	t := btree.NewOrdered[int](order)
	for k := 1; k <= n; k++ {
		t.Insert(k)
	}
	if err := t.Check(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create dot file")
	}
	if err := t.WriteDOT(f, strconv.Itoa); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
