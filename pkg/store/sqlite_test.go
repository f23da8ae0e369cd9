package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel_router/pkg/dataset"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSaveLoadBuiltin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := dataset.Builtin()

	require.NoError(t, s.SaveDataset(ctx, want))

	got, err := s.LoadDataset(ctx, want.Name)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The loaded dataset builds the same graph.
	g, src, err := got.Build()
	require.NoError(t, err)
	assert.Equal(t, uint32(6), g.NumNodes)
	assert.Equal(t, uint32(20), g.NumEdges)
	assert.Equal(t, 90.0, src.Estimate(5, 0))
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &dataset.Dataset{
		Name:      "depot",
		Locations: []dataset.Location{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Edges:     []dataset.Edge{{From: "A", To: "B", Cost: 1}},
	}
	require.NoError(t, s.SaveDataset(ctx, first))

	second := &dataset.Dataset{
		Name:      "depot",
		Directed:  true,
		Locations: []dataset.Location{{Name: "X", Coord: &dataset.Coord{Lat: 1, Lon: 2}}, {Name: "Y", Coord: &dataset.Coord{Lat: 3, Lon: 4}}},
		Edges:     []dataset.Edge{{From: "X", To: "Y", Cost: 2.5}},
	}
	require.NoError(t, s.SaveDataset(ctx, second))

	got, err := s.LoadDataset(ctx, "depot")
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Nil(t, got.Estimates)
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadDataset(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"west", "east", "north"} {
		require.NoError(t, s.SaveDataset(ctx, &dataset.Dataset{
			Name:      name,
			Locations: []dataset.Location{{Name: "A"}},
		}))
	}

	names, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north", "west"}, names)

	require.NoError(t, s.DeleteDataset(ctx, "north"))
	require.ErrorIs(t, s.DeleteDataset(ctx, "north"), ErrNotFound)

	_, err = s.LoadDataset(ctx, "north")
	require.ErrorIs(t, err, ErrNotFound)

	names, err = s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "west"}, names)
}

func TestSaveRejectsDuplicateLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveDataset(ctx, &dataset.Dataset{
		Name:      "dup",
		Locations: []dataset.Location{{Name: "A"}, {Name: "A"}},
	})
	require.Error(t, err)

	// The failed transaction leaves nothing behind.
	_, err = s.LoadDataset(ctx, "dup")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresName(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.SaveDataset(context.Background(), &dataset.Dataset{}))
}
