package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"seatcast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, seasonal, noisy")
	outDir := flag.String("out", ".", "Output directory for the mock dataset")
	name := flag.String("name", "denemedata2", "File name without extension")
	days := flag.Int("days", 730, "Calendar days of history to generate")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Days:     *days,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (%d days, seed %d) to %s...\n", cfg.Scenario, cfg.Days, cfg.Seed, *outDir)

	sessions, err := engine.Generate(context.Background(), cfg)
	if err != nil {
		fmt.Printf("Failed to generate mock data: %v\n", err)
		os.Exit(1)
	}

	path, err := engine.Save(*outDir, *name, sessions)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d sessions written to %s\n", len(sessions), path)
}
