package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"parcel_router/pkg/api"
	"parcel_router/pkg/cache"
	"parcel_router/pkg/heuristic"
	"parcel_router/pkg/loader"
	"parcel_router/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "", "Path to preprocessed graph binary")
	dbPath := flag.String("db", "", "Path to SQLite dataset store")
	dbName := flag.String("db-dataset", "", "Dataset name inside -db (default: the only one stored)")
	datasetPath := flag.String("dataset", "", "Path to JSON dataset (default: built-in East Java network)")
	durationFactor := flag.Float64("duration-factor", heuristic.DefaultConfig().AverageDurationPerUnitDistance, "Average duration per unit distance")
	packagePenalty := flag.Float64("package-penalty", heuristic.DefaultConfig().SpeedReductionPerPackage, "Speed reduction per package")
	maxExpansions := flag.Int("max-expansions", 0, "Abort searches after this many expansions (0 = unbounded)")
	snapKm := flag.Float64("snap-km", routing.DefaultMaxSnapDistanceKm, "Max distance in km when snapping coordinates to a location")
	reportOptimal := flag.Bool("report-optimal", true, "Include the plain shortest-path cost in responses")
	redisAddr := flag.String("redis-addr", "", "Redis address for the route cache (empty = no cache)")
	cacheTTL := flag.Duration("cache-ttl", cache.DefaultTTL, "Route cache TTL")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()
	ctx := context.Background()

	// Load network.
	network, err := loader.Load(ctx, loader.Options{
		GraphPath:   *graphPath,
		DBPath:      *dbPath,
		DBName:      *dbName,
		DatasetPath: *datasetPath,
	})
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	log.Printf("Loaded %q: %d locations, %d edges", network.Name, network.Graph.NumNodes, network.Graph.NumEdges)

	// Build routing engine.
	hcfg := heuristic.Config{
		AverageDurationPerUnitDistance: *durationFactor,
		SpeedReductionPerPackage:       *packagePenalty,
	}
	ev, err := heuristic.NewEvaluator(network.Graph, network.Source, hcfg)
	if err != nil {
		log.Fatalf("Failed to build heuristic: %v", err)
	}
	ecfg := routing.EngineConfig{
		MaxExpansions:     *maxExpansions,
		MaxSnapDistanceKm: *snapKm,
		ReportOptimal:     *reportOptimal,
	}
	engine, err := routing.NewEngine(network.Graph, ev, ecfg)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	stats, locations := api.Describe(network.Name, network.Graph, network.Source)
	stats.Variant = api.Fingerprint(network.Graph, network.Source, hcfg, ecfg)
	handlers := api.NewHandlers(engine, stats, locations)

	// Optional route cache.
	if *redisAddr != "" {
		rc, err := cache.Dial(ctx, *redisAddr, *cacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect route cache: %v", err)
		}
		defer rc.Close()
		handlers.WithCache(rc)
		log.Printf("Route cache: redis at %s, ttl %s", *redisAddr, *cacheTTL)
	}

	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	srv := api.NewServer(cfg, handlers)
	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
