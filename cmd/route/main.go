package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"parcel_router/pkg/heuristic"
	"parcel_router/pkg/loader"
	"parcel_router/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "", "Path to preprocessed graph binary")
	dbPath := flag.String("db", "", "Path to SQLite dataset store")
	dbName := flag.String("db-dataset", "", "Dataset name inside -db")
	datasetPath := flag.String("dataset", "", "Path to JSON dataset (default: built-in East Java network)")
	from := flag.String("from", "", "Start location")
	to := flag.String("to", "", "Goal location")
	packages := flag.Int("packages", 0, "Number of packages on board")
	w1 := flag.Float64("w1", 1, "Distance weight")
	w2 := flag.Float64("w2", 0, "Duration weight")
	w3 := flag.Float64("w3", 0, "Load weight")
	durationFactor := flag.Float64("duration-factor", heuristic.DefaultConfig().AverageDurationPerUnitDistance, "Average duration per unit distance")
	packagePenalty := flag.Float64("package-penalty", heuristic.DefaultConfig().SpeedReductionPerPackage, "Speed reduction per package")
	trace := flag.Bool("trace", false, "Print every expanded location")
	list := flag.Bool("list", false, "List locations and exit")
	timeout := flag.Duration("timeout", 5*time.Second, "Search timeout")
	flag.Parse()

	network, err := loader.Load(context.Background(), loader.Options{
		GraphPath:   *graphPath,
		DBPath:      *dbPath,
		DBName:      *dbName,
		DatasetPath: *datasetPath,
	})
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	g := network.Graph

	if *list {
		for _, name := range g.Names {
			fmt.Println(name)
		}
		return
	}

	if *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "Usage: route --from SURABAYA --to MALANG [--packages N] [--w1 1 --w2 0 --w3 0] [--trace]")
		os.Exit(2)
	}
	if *packages < 0 {
		log.Fatalf("--packages must be >= 0")
	}
	weights := heuristic.Weights{Distance: *w1, Duration: *w2, Load: *w3}
	if !weights.Valid() {
		log.Fatalf("w1, w2, w3 must be finite with a sum within [0, 1], got %g, %g, %g", *w1, *w2, *w3)
	}

	ev, err := heuristic.NewEvaluator(g, network.Source, heuristic.Config{
		AverageDurationPerUnitDistance: *durationFactor,
		SpeedReductionPerPackage:       *packagePenalty,
	})
	if err != nil {
		log.Fatalf("Failed to build heuristic: %v", err)
	}

	req := routing.Request{
		Start:       strings.ToUpper(strings.TrimSpace(*from)),
		Goal:        strings.ToUpper(strings.TrimSpace(*to)),
		NumPackages: *packages,
		Weights:     weights,
	}

	deadline := time.Now().Add(*timeout)
	opts := []routing.Option{
		routing.WithInterrupt(func() bool { return time.Now().After(deadline) }),
	}
	if *trace {
		opts = append(opts, routing.WithObserver(func(x routing.Expansion) {
			fmt.Printf("%4d  %-20s g=%-10.4g h=%-10.4g f=%.4g\n", x.Step, x.Location, x.G, x.H, x.G+x.H)
		}))
	}

	start := time.Now()
	res, err := routing.Search(g, ev, req, opts...)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		fmt.Printf("No route from %s to %s\n", req.Start, req.Goal)
		os.Exit(1)
	case err != nil:
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("Route: %s\n", strings.Join(res.Path, " -> "))
	fmt.Printf("Cost: %g (%d expansions, %s)\n", res.Cost, res.Expanded, elapsed.Round(time.Microsecond))
	if opt, ok := routing.ShortestCost(g, res.Nodes[0], res.Nodes[len(res.Nodes)-1]); ok && opt < res.Cost {
		fmt.Printf("Shortest possible cost: %g\n", opt)
	}
}
