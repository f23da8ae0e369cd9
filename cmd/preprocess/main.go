package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"parcel_router/pkg/dataset"
	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
	osmparser "parcel_router/pkg/osm"
	"parcel_router/pkg/store"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf, .osm or .json dataset")
	output := flag.String("output", "graph.bin", "Output binary graph file path (empty = skip)")
	dbPath := flag.String("db", "", "Also save JSON datasets into this SQLite store")
	bbox := flag.String("bbox", "", "OSM bounding box filter: minLat,minLng,maxLat,maxLng (e.g. -8.3,111.9,-6.8,113.0)")
	eastJava := flag.Bool("east-java", false, "Shortcut for --bbox -8.3,111.9,-6.8,113.0 (East Java bounding box)")
	largest := flag.Bool("largest-component", true, "Keep only the largest connected component of OSM road graphs")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf|file.osm|dataset.json> [--output graph.bin] [--db routes.db] [--east-java | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	start := time.Now()

	var (
		g   *graph.Graph
		est []float64
	)
	if strings.HasSuffix(*input, ".json") {
		g, est = fromDataset(*input, *dbPath)
	} else {
		g = fromOSM(*input, *bbox, *eastJava, *largest)
	}

	if *output != "" {
		log.Printf("Writing binary to %s...", *output)
		if err := graph.WriteBinary(*output, g, est); err != nil {
			log.Fatalf("Failed to write binary: %v", err)
		}
		info, _ := os.Stat(*output)
		log.Printf("Output: %s (%.1f KB)", *output, float64(info.Size())/1024)
	}

	log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
}

// fromDataset builds a JSON dataset and optionally stores it in SQLite.
func fromDataset(path, dbPath string) (*graph.Graph, []float64) {
	ds, err := dataset.Load(path)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	g, src, err := ds.Build()
	if err != nil {
		log.Fatalf("Invalid dataset: %v", err)
	}
	log.Printf("Dataset %q: %d locations, %d edges, %d components", ds.Name, g.NumNodes, g.NumEdges, graph.CountComponents(g))

	if dbPath != "" {
		s, err := store.NewStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer s.Close()
		if err := s.SaveDataset(context.Background(), ds); err != nil {
			log.Fatalf("Failed to save dataset: %v", err)
		}
		log.Printf("Saved %q to %s", ds.Name, dbPath)
	}

	// Coordinate tables are recomputed on load; only explicit matrices are stored.
	if m, ok := src.(*heuristic.Matrix); ok {
		return g, m.Values()
	}
	return g, nil
}

// fromOSM imports a road graph, with coordinates standing in for estimates.
func fromOSM(path, bbox string, eastJava, largest bool) *graph.Graph {
	var opts osmparser.ParseOptions
	if eastJava {
		opts.BBox = osmparser.BBox{MinLat: -8.3, MaxLat: -6.8, MinLng: 111.9, MaxLng: 113.0}
		log.Println("Using East Java bounding box filter: lat [-8.30, -6.80], lng [111.90, 113.00]")
	} else if bbox != "" {
		b, err := osmparser.ParseBBox(bbox)
		if err != nil {
			log.Fatalf("Invalid bbox: %v", err)
		}
		opts.BBox = b
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}

	// Step 1: Parse OSM data.
	log.Println("Parsing OSM data...")
	parseResult, err := osmparser.ParseFile(context.Background(), path, opts)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}
	log.Printf("Parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

	// Step 2: Build graph.
	log.Println("Building graph...")
	g, err := graph.Build(parseResult.Input())
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	log.Printf("Graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

	// Step 3: Extract largest connected component.
	if largest && g.NumNodes > 0 {
		log.Println("Extracting largest connected component...")
		componentNodes := graph.LargestComponent(g)
		log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes)*100)
		g = graph.FilterToComponent(g, componentNodes)
		log.Printf("Filtered graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)
	}
	return g
}
