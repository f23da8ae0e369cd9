// Package dataset loads location graphs and their estimate tables from JSON
// and ships the built-in East Java delivery network.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
)

// ErrNoEstimates is returned when a dataset has neither an estimate table
// nor coordinates to derive one from.
var ErrNoEstimates = errors.New("dataset has no estimates and no coordinates")

// Coord is a WGS84 position.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a named stop.
type Location struct {
	Name  string `json:"name"`
	Coord *Coord `json:"coord,omitempty"`
}

// Edge connects two stops. Undirected unless Dataset.Directed is set.
type Edge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Cost float64 `json:"cost"`
}

// Dataset is the on-disk description of a routing network.
type Dataset struct {
	Name      string     `json:"name"`
	Directed  bool       `json:"directed,omitempty"`
	Locations []Location `json:"locations"`
	Edges     []Edge     `json:"edges"`
	// Estimates maps goal → location → estimated distance.
	Estimates map[string]map[string]float64 `json:"estimates,omitempty"`
}

// Load reads a JSON dataset from path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a JSON dataset from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}

// Save writes the dataset as indented JSON.
func (ds *Dataset) Save(path string) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// HasCoordinates reports whether every location is placed on the map.
func (ds *Dataset) HasCoordinates() bool {
	if len(ds.Locations) == 0 {
		return false
	}
	for _, l := range ds.Locations {
		if l.Coord == nil {
			return false
		}
	}
	return true
}

// Build validates the dataset and returns its graph and estimate source.
// An explicit estimate table wins over coordinates.
func (ds *Dataset) Build() (*graph.Graph, heuristic.Source, error) {
	withCoords := ds.HasCoordinates()
	in := &graph.Input{WithCoordinates: withCoords}
	for _, l := range ds.Locations {
		loc := graph.Location{Name: l.Name}
		if l.Coord != nil {
			loc.Lat, loc.Lon = l.Coord.Lat, l.Coord.Lon
		}
		in.Locations = append(in.Locations, loc)
	}
	for _, e := range ds.Edges {
		in.Edges = append(in.Edges, graph.Edge{From: e.From, To: e.To, Cost: e.Cost})
	}
	if !ds.Directed {
		in.Edges = graph.Mirror(in.Edges)
	}

	g, err := graph.Build(in)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
	}

	switch {
	case len(ds.Estimates) > 0:
		m, err := heuristic.MatrixFromMap(g, ds.Estimates)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
		return g, m, nil
	case withCoords:
		ct, err := heuristic.NewCoordinateTable(g)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
		return g, ct, nil
	default:
		return nil, nil, fmt.Errorf("dataset %q: %w", ds.Name, ErrNoEstimates)
	}
}
