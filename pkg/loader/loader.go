// Package loader opens a routing network from whichever source a command was
// pointed at: a binary bundle, a SQLite store, a JSON dataset, or the
// built-in East Java network.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"parcel_router/pkg/dataset"
	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
	"parcel_router/pkg/store"
)

// ErrAmbiguousSource is returned when more than one source is selected.
var ErrAmbiguousSource = errors.New("choose at most one of graph, db and dataset")

// Options selects the network source. At most one path may be set; none
// selects the built-in dataset.
type Options struct {
	GraphPath   string // binary bundle from cmd/preprocess
	DBPath      string // SQLite store
	DBName      string // dataset name inside the store; defaults to the only one stored
	DatasetPath string // JSON dataset
}

// Network is a loaded graph with its estimate source.
type Network struct {
	Name   string
	Graph  *graph.Graph
	Source heuristic.Source
}

// Load opens the network selected by opts.
func Load(ctx context.Context, opts Options) (*Network, error) {
	set := 0
	for _, p := range []string{opts.GraphPath, opts.DBPath, opts.DatasetPath} {
		if p != "" {
			set++
		}
	}
	if set > 1 {
		return nil, ErrAmbiguousSource
	}

	switch {
	case opts.GraphPath != "":
		return loadBinary(opts.GraphPath)
	case opts.DBPath != "":
		return loadStore(ctx, opts.DBPath, opts.DBName)
	case opts.DatasetPath != "":
		ds, err := dataset.Load(opts.DatasetPath)
		if err != nil {
			return nil, err
		}
		if ds.Name == "" {
			ds.Name = strings.TrimSuffix(filepath.Base(opts.DatasetPath), filepath.Ext(opts.DatasetPath))
		}
		return fromDataset(ds)
	default:
		return fromDataset(dataset.Builtin())
	}
}

func fromDataset(ds *dataset.Dataset) (*Network, error) {
	g, src, err := ds.Build()
	if err != nil {
		return nil, err
	}
	return &Network{Name: ds.Name, Graph: g, Source: src}, nil
}

func loadBinary(path string) (*Network, error) {
	g, est, err := graph.ReadBinary(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	n := &Network{
		Name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Graph: g,
	}
	if est != nil {
		if n.Source, err = heuristic.NewMatrix(g.NumNodes, est); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return n, nil
	}
	if n.Source, err = heuristic.NewCoordinateTable(g); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}

func loadStore(ctx context.Context, path, name string) (*Network, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if name == "" {
		names, err := s.ListDatasets(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) != 1 {
			return nil, fmt.Errorf("%s holds %d datasets, pick one by name", path, len(names))
		}
		name = names[0]
	}

	ds, err := s.LoadDataset(ctx, name)
	if err != nil {
		return nil, err
	}
	return fromDataset(ds)
}
