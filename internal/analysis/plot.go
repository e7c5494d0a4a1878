// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var palette = []color.Color{
	color.RGBA{R: 228, G: 26, B: 28, A: 255},
	color.RGBA{R: 55, G: 126, B: 184, A: 255},
	color.RGBA{R: 77, G: 175, B: 74, A: 255},
	color.RGBA{R: 152, G: 78, B: 163, A: 255},
	color.RGBA{R: 255, G: 127, B: 0, A: 255},
	color.RGBA{R: 166, G: 86, B: 40, A: 255},
	color.RGBA{R: 247, G: 129, B: 191, A: 255},
	color.RGBA{R: 153, G: 153, B: 153, A: 255},
}

// PlotQC plots the total count against the number of detected genes for
// each cell coloured by condition, and saves it to path.
func PlotQC(path string, metrics []CellQC) error {
	groups := make(map[string]plotter.XYs)
	for _, q := range metrics {
		if q.NCount <= 0 {
			continue
		}
		groups[q.Condition] = append(groups[q.Condition], plotter.XY{X: q.NCount, Y: float64(q.NFeature)})
	}

	p := plot.New()
	p.Title.Text = "Cell quality"
	p.X.Label.Text = "nCount"
	p.Y.Label.Text = "nFeature"
	p.X.Scale = logScale{}
	p.X.Tick.Marker = logTicks{}
	err := addGroups(p, groups)
	if err != nil {
		return err
	}
	return p.Save(18*vg.Centimeter, 15*vg.Centimeter, path)
}

// PlotPCA plots the first two component scores of each cell coloured by
// cluster, and saves it to path.
func PlotPCA(path string, scores *mat.Dense, clusters []int) error {
	groups := make(map[string]plotter.XYs)
	if scores != nil {
		n, k := scores.Dims()
		for i := 0; i < n; i++ {
			xy := plotter.XY{X: scores.At(i, 0)}
			if k > 1 {
				xy.Y = scores.At(i, 1)
			}
			name := "cluster " + strconv.Itoa(clusters[i])
			groups[name] = append(groups[name], xy)
		}
	}

	p := plot.New()
	p.Title.Text = "Principal components"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"
	err := addGroups(p, groups)
	if err != nil {
		return err
	}
	return p.Save(18*vg.Centimeter, 15*vg.Centimeter, path)
}

func addGroups(p *plot.Plot, groups map[string]plotter.XYs) error {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		s, err := plotter.NewScatter(groups[name])
		if err != nil {
			return fmt.Errorf("analysis: could not plot %s: %w", name, err)
		}
		s.GlyphStyle.Color = palette[i%len(palette)]
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(name, s)
	}
	return nil
}

type logScale struct{}

func (logScale) Normalize(min, max, x float64) float64 {
	min = math.Max(min, 1e-16)
	max = math.Max(max, 1e-16)
	x = math.Max(x, 1e-16)
	logMin := math.Log(min)
	return (math.Log(x) - logMin) / (math.Log(max) - logMin)
}

type logTicks struct{ powers int }

func (t logTicks) Ticks(min, max float64) []plot.Tick {
	min = math.Max(min, 1e-16)
	max = math.Max(max, 1e-16)
	if t.powers < 1 {
		t.powers = 1
	}

	val := math.Pow10(int(math.Log10(min)))
	max = math.Pow10(int(math.Ceil(math.Log10(max))))
	var ticks []plot.Tick
	for val < max {
		for i := 1; i < 10; i++ {
			if i == 1 {
				ticks = append(ticks, plot.Tick{Value: val, Label: strconv.FormatFloat(val, 'e', 0, 64)})
			}
			if t.powers != 1 {
				break
			}
			ticks = append(ticks, plot.Tick{Value: val * float64(i)})
		}
		val *= math.Pow10(t.powers)
	}
	ticks = append(ticks, plot.Tick{Value: val, Label: strconv.FormatFloat(val, 'e', 0, 64)})

	return ticks
}
