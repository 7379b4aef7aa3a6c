package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/config"
	"github.com/exoatmos/transitspec/internal/db"
	"github.com/exoatmos/transitspec/internal/spectrum"
	"github.com/exoatmos/transitspec/internal/storage/sqlite"
	"github.com/exoatmos/transitspec/internal/version"
)

var (
	configPath  = flag.String("config", "run.json", "Run configuration JSON file")
	atmosPath   = flag.String("atmosphere", "atmosphere.json", "Atmosphere table JSON file")
	linesPath   = flag.String("lines", "lines.json", "Line-transition list JSON file")
	tablePath   = flag.String("table", "", "Write the single-layer diagnostic table to this path")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadRunConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := atmo.LoadAtmosphere(*atmosPath)
	if err != nil {
		log.Fatalf("Failed to load atmosphere: %v", err)
	}
	lines, err := atmo.LoadLineList(*linesPath)
	if err != nil {
		log.Fatalf("Failed to load line list: %v", err)
	}
	log.Printf("Loaded %d layers, %d molecules, %d isotopes, %d lines",
		a.NLayers(), len(a.Molecules), len(a.Isotopes), len(lines))

	runner, err := spectrum.NewRunner(cfg, a, lines)
	if err != nil {
		log.Fatalf("Failed to set up run: %v", err)
	}

	start := time.Now()
	sp, err := runner.Run()
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	elapsed := time.Since(start)

	if *tablePath != "" {
		if err := runner.WriteDiagnosticTable(*tablePath); err != nil {
			log.Printf("Diagnostic table not written: %v", err)
		} else {
			log.Printf("Wrote diagnostic table to %s", *tablePath)
		}
	}

	out := cfg.GetOutputPath()
	if err := sp.WriteText(out); err != nil {
		log.Fatalf("Failed to write spectrum: %v", err)
	}
	log.Printf("Wrote %d spectrum points to %s", len(sp.Wavenumber), out)

	if dbPath := cfg.GetDBPath(); dbPath != "" {
		d, err := db.NewDB(dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer d.Close()

		store := sqlite.NewRunStore(d)
		id, err := store.SaveRun(cfg, sp, elapsed)
		if err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
		log.Printf("Recorded run %s in %s", id, dbPath)
	}
}
