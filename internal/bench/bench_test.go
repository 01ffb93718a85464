package bench

import (
	"bytes"
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/btree-query-bench/verdant/index/btree"
	"github.com/btree-query-bench/verdant/index/listindex"
	"github.com/btree-query-bench/verdant/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestExecuteMixes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := btree.NewMap(3)

	st, err := Execute(m, OLAP, 1000, rng, 10)
	require.NoError(t, err)
	assert.Equal(t, 1000, st.Reads+st.Writes)
	assert.Greater(t, st.Writes, st.Reads)

	st, err = Execute(m, OLTP, 1000, rng, 10)
	require.NoError(t, err)
	assert.Equal(t, 1000, st.Reads+st.Writes)
	assert.Greater(t, st.Reads, st.Writes)
	assert.Less(t, st.Misses, st.Reads)

	st, err = Execute(m, Reporting, 50, rng, 10)
	require.NoError(t, err)
	assert.Greater(t, st.Scanned, 0)

	st, err = Execute(m, Churn, 1000, rng, 10)
	require.NoError(t, err)
	assert.Equal(t, 1000, st.Writes+st.Deletes)
	require.NoError(t, m.Check())

	_, err = Execute(m, Workload("bogus"), 1, rng, 10)
	assert.Error(t, err)

	st, err = Execute(m, OLTP, 0, rng, 10)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestRecorder(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)
	require.NoError(t, rec.Record(BenchResult{Name: "B-Tree", Config: "8", Operation: "Workload_OLTP", LatencyNs: 120, MemMB: 3, Objects: 9}))
	require.NoError(t, rec.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"B-Tree", "8", "Workload_OLTP", "120", "3", "9"},
	}, rows)
	assert.Len(t, rec.Results(), 1)
}

func TestRunSuite(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	require.NoError(t, RunSuite(rec, Suite{Name: "B-Tree", Config: 2, Index: btree.NewMap(2), Keys: 400, Span: 20}, rng, quietLogger()))
	require.NoError(t, RunSuite(rec, Suite{Name: "List", Index: listindex.NewListIndex(), Keys: 400, Span: 20}, rng, quietLogger()))

	var ops []string
	for _, r := range rec.Results() {
		ops = append(ops, r.Operation)
	}
	suite := []string{"Footprint_SteadyState", "Workload_OLTP", "Workload_OLAP", "Workload_Range", "Workload_Churn"}
	assert.Equal(t, append(append([]string{}, suite...), suite...), ops)
}

func TestRunTable(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "accounts.tbl")
	rng := rand.New(rand.NewSource(3))
	require.NoError(t, RunTable(rec, path, 500, rng, 10, quietLogger()))
	// Running again replaces the file instead of colliding with old keys.
	require.NoError(t, RunTable(rec, path, 500, rng, 10, quietLogger()))

	var ops []string
	for _, r := range rec.Results()[:5] {
		ops = append(ops, r.Operation)
	}
	assert.Equal(t, []string{"Table_Insert", "Table_Get", "Table_Range", "Table_Delete", "Table_Reopen"}, ops)
}

func TestPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latency.png")
	results := []BenchResult{
		{Name: "B-Tree", Config: "8", Operation: "Footprint_SteadyState", LatencyNs: 50},
		{Name: "B-Tree", Config: "8", Operation: "Workload_OLTP", LatencyNs: 100},
		{Name: "B-Tree", Config: "8", Operation: "Workload_OLAP", LatencyNs: 300},
		{Name: "List", Config: "0", Operation: "Workload_OLTP", LatencyNs: 200},
	}
	require.NoError(t, Plot(results, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, Plot(nil, path))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Scale = 300
	cfg.ListScale = 100
	cfg.Orders = []int{2, 8}
	cfg.MemtableSizes = []int{1 << 20}
	cfg.TableRows = 200
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.ResultsCSV = filepath.Join(dir, "results.csv")
	cfg.PlotPath = filepath.Join(dir, "latency.svg")

	require.NoError(t, Run(cfg, quietLogger()))

	f, err := os.Open(cfg.ResultsCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// header + 4 suites of 5 rows + 5 table rows
	assert.Len(t, rows, 1+4*5+5)

	_, err = os.Stat(cfg.PlotPath)
	assert.NoError(t, err)
}
