// spectrum-plot renders a transit spectrum, either from a stored run in the
// sqlite database or from a two-column text file, as a PNG or an interactive
// HTML chart.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/exoatmos/transitspec/internal/db"
	"github.com/exoatmos/transitspec/internal/spectrum"
	"github.com/exoatmos/transitspec/internal/storage/sqlite"
)

var (
	dbPath   = flag.String("db", "", "Read the spectrum from this sqlite database")
	runID    = flag.String("run", "", "Run id to plot (default: most recent)")
	inPath   = flag.String("in", "", "Read the spectrum from this text file instead of the database")
	pngPath  = flag.String("png", "", "Write a PNG plot to this path")
	htmlPath = flag.String("html", "", "Write an interactive HTML chart to this path")
)

func main() {
	flag.Parse()

	if *pngPath == "" && *htmlPath == "" {
		log.Fatal("Nothing to do: pass -png and/or -html")
	}

	sp, label, err := loadSpectrum()
	if err != nil {
		log.Fatalf("Failed to load spectrum: %v", err)
	}
	log.Printf("Loaded %d points (%s)", len(sp.Wavenumber), label)

	if *pngPath != "" {
		if err := writePNG(sp, *pngPath); err != nil {
			log.Fatalf("Failed to write PNG: %v", err)
		}
		log.Printf("Wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		if err := writeHTML(sp, label, *htmlPath); err != nil {
			log.Fatalf("Failed to write HTML chart: %v", err)
		}
		log.Printf("Wrote %s", *htmlPath)
	}
}

func loadSpectrum() (*spectrum.Spectrum, string, error) {
	if *inPath != "" {
		sp, err := readTextSpectrum(*inPath)
		return sp, *inPath, err
	}
	if *dbPath == "" {
		return nil, "", fmt.Errorf("pass -db or -in")
	}

	d, err := db.NewDB(*dbPath)
	if err != nil {
		return nil, "", err
	}
	defer d.Close()
	store := sqlite.NewRunStore(d)

	id := *runID
	if id == "" {
		runs, err := store.ListRuns(1)
		if err != nil {
			return nil, "", err
		}
		if len(runs) == 0 {
			return nil, "", fmt.Errorf("no runs in %s", *dbPath)
		}
		id = runs[0].ID
	}
	sp, err := store.LoadSpectrum(id)
	return sp, "run " + id, err
}

// readTextSpectrum parses the two-column output of a run, skipping comment
// lines.
func readTextSpectrum(path string) (*spectrum.Spectrum, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	sp := &spectrum.Spectrum{}
	sc := bufio.NewScanner(fp)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var wn, mod float64
		if _, err := fmt.Sscanf(line, "%f %f", &wn, &mod); err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		sp.Wavenumber = append(sp.Wavenumber, wn)
		sp.Modulation = append(sp.Modulation, mod)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(sp.Wavenumber) == 0 {
		return nil, fmt.Errorf("no spectrum points in %s", path)
	}
	return sp, nil
}

func writePNG(sp *spectrum.Spectrum, path string) error {
	p := plot.New()
	p.Title.Text = "Transit Spectrum"
	p.X.Label.Text = "Wavenumber (cm-1)"
	p.Y.Label.Text = "Modulation"

	pts := make(plotter.XYs, len(sp.Wavenumber))
	for i := range pts {
		pts[i].X = sp.Wavenumber[i]
		pts[i].Y = sp.Modulation[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func writeHTML(sp *spectrum.Spectrum, label, path string) error {
	xs := make([]string, len(sp.Wavenumber))
	ys := make([]opts.LineData, len(sp.Modulation))
	for i := range sp.Wavenumber {
		xs[i] = fmt.Sprintf("%.4f", sp.Wavenumber[i])
		ys[i] = opts.LineData{Value: sp.Modulation[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Transit Spectrum", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Transit Spectrum", Subtitle: fmt.Sprintf("%s, %d points", label, len(ys))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Wavenumber (cm-1)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Modulation", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xs)
	line.AddSeries("modulation", ys)

	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return line.Render(fp)
}
