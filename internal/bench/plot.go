package bench

import (
	"slices"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot renders a grouped bar chart of per-operation latency, one bar group per
// workload and one bar per structure/config, and saves it to path. The
// format follows the file extension.
func Plot(results []BenchResult, path string) error {
	var ops, series []string
	latency := map[string]map[string]float64{}
	for _, r := range results {
		if r.Operation == "Footprint_SteadyState" {
			continue
		}
		label := r.Name
		if r.Config != "" && r.Config != "0" {
			label += " " + r.Config
		}
		if _, ok := latency[label]; !ok {
			latency[label] = map[string]float64{}
			series = append(series, label)
		}
		if !slices.Contains(ops, r.Operation) {
			ops = append(ops, r.Operation)
		}
		latency[label][r.Operation] = float64(r.LatencyNs)
	}
	if len(series) == 0 {
		return errors.New("bench: nothing to plot")
	}

	p := plot.New()
	p.Title.Text = "Latency per operation"
	p.Y.Label.Text = "ns/op"
	p.Legend.Top = true

	w := vg.Points(40 / float64(len(series)))
	for i, label := range series {
		vals := make(plotter.Values, len(ops))
		for j, op := range ops {
			vals[j] = latency[label][op]
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return errors.Wrapf(err, "bench: bars for %s", label)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(len(series)-1)/2) * w
		p.Add(bars)
		p.Legend.Add(label, bars)
	}
	p.NominalX(ops...)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "bench: save plot %s", path)
	}
	return nil
}
