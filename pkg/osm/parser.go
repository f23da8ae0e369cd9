package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"parcel_router/pkg/geo"
	"parcel_router/pkg/graph"
)

// RawEdge represents a directed road segment parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	CostKm     float64 // great-circle length in kilometres
}

// ParseResult holds the road network extracted from an OSM file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if a delivery van may drive the way.
func isCarAccessible(tags osm.Tags) bool {
	if !carHighways[tags.Find("highway")] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent; skip entirely.
		forward, backward = false, false
	}
	return forward, backward
}

// wayInfo holds the drivable part of a way.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseBBox parses "minLat,minLng,maxLat,maxLng".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox %q: want minLat,minLng,maxLat,maxLng", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := BBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return BBox{}, fmt.Errorf("bbox %q: min exceeds max", s)
	}
	return b, nil
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

func firstOption(opts []ParseOptions) ParseOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return ParseOptions{}
}

// readWay returns the drivable part of w, or false if it should be skipped.
func readWay(w *osm.Way) (wayInfo, bool) {
	if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
		return wayInfo{}, false
	}
	fwd, bwd := directionFlags(w.Tags)
	if !fwd && !bwd {
		return wayInfo{}, false
	}
	ids := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		ids[i] = wn.ID
	}
	return wayInfo{NodeIDs: ids, Forward: fwd, Backward: bwd}, true
}

// Parse reads an OSM PBF file and returns directed edges for van routing.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	opt := firstOption(opts)

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		info, ok := readWay(w)
		if !ok {
			continue
		}
		for _, id := range info.NodeIDs {
			referencedNodes[id] = struct{}{}
		}
		ways = append(ways, info)
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	return buildEdges(ways, nodeLat, nodeLon, opt), nil
}

// ParseXML reads an OSM XML document in a single pass. Node coordinates are
// kept for every node in the document, so it suits small extracts.
func ParseXML(ctx context.Context, r io.Reader, opts ...ParseOptions) (*ParseResult, error) {
	opt := firstOption(opts)

	nodeLat := make(map[osm.NodeID]float64)
	nodeLon := make(map[osm.NodeID]float64)
	var ways []wayInfo

	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodeLat[o.ID] = o.Lat
			nodeLon[o.ID] = o.Lon
		case *osm.Way:
			if info, ok := readWay(o); ok {
				ways = append(ways, info)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan xml: %w", err)
	}

	log.Printf("XML scan complete: %d ways, %d nodes", len(ways), len(nodeLat))

	return buildEdges(ways, nodeLat, nodeLon, opt), nil
}

// ParseFile picks the PBF or XML reader by file extension.
func ParseFile(ctx context.Context, path string, opts ...ParseOptions) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".pbf") {
		return Parse(ctx, f, opts...)
	}
	return ParseXML(ctx, f, opts...)
}

// buildEdges turns ways into directed edges, dropping segments with unknown
// or out-of-box endpoints. Only endpoints of kept edges stay in the result.
func buildEdges(ways []wayInfo, lat, lon map[osm.NodeID]float64, opt ParseOptions) *ParseResult {
	useBBox := !opt.BBox.IsZero()
	res := &ParseResult{
		NodeLat: make(map[osm.NodeID]float64),
		NodeLon: make(map[osm.NodeID]float64),
	}
	var skippedEdges, bboxFiltered int

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID, toID := w.NodeIDs[i], w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			fromLat, fromOk := lat[fromID]
			toLat, toOk := lat[toID]
			if !fromOk || !toOk {
				skippedEdges++
				continue
			}
			fromLon, toLon := lon[fromID], lon[toID]

			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			cost := geo.HaversineKm(fromLat, fromLon, toLat, toLon)
			if w.Forward {
				res.Edges = append(res.Edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, CostKm: cost})
			}
			if w.Backward {
				res.Edges = append(res.Edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, CostKm: cost})
			}
			res.NodeLat[fromID], res.NodeLon[fromID] = fromLat, fromLon
			res.NodeLat[toID], res.NodeLon[toID] = toLat, toLon
		}
	}

	if skippedEdges > 0 {
		log.Printf("Warning: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d directed edges", len(res.Edges))
	return res
}

// NodeName is the location identifier given to an OSM node.
func NodeName(id osm.NodeID) string {
	return strconv.FormatInt(int64(id), 10)
}

// Input converts the parse result into graph builder input. Locations are
// ordered by ascending OSM node ID and carry coordinates.
func (r *ParseResult) Input() *graph.Input {
	ids := make([]osm.NodeID, 0, len(r.NodeLat))
	for id := range r.NodeLat {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	in := &graph.Input{
		Locations:       make([]graph.Location, len(ids)),
		Edges:           make([]graph.Edge, len(r.Edges)),
		WithCoordinates: true,
	}
	for i, id := range ids {
		in.Locations[i] = graph.Location{Name: NodeName(id), Lat: r.NodeLat[id], Lon: r.NodeLon[id]}
	}
	for i, e := range r.Edges {
		in.Edges[i] = graph.Edge{From: NodeName(e.FromNodeID), To: NodeName(e.ToNodeID), Cost: e.CostKm}
	}
	return in
}
