package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel_router/pkg/routing"
)

func setupCache(t *testing.T, ttl time.Duration) (*RouteCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func sampleKey() Key {
	return Key{
		Dataset:     "east-java",
		Variant:     "3f2a9c01",
		Start:       "SURABAYA",
		Goal:        "MALANG",
		NumPackages: 2,
		Weights:     [3]float64{0.5, 0.25, 0.25},
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "parcel_router:route:east-java:3f2a9c01:SURABAYA:MALANG:2:0.5:0.25:0.25", sampleKey().String())

	other := sampleKey()
	other.NumPackages = 3
	assert.NotEqual(t, sampleKey().String(), other.String())

	other = sampleKey()
	other.Variant = "77d01b4e"
	assert.NotEqual(t, sampleKey().String(), other.String())
}

func TestPutGet(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	optimal := 9.0
	want := &routing.RouteResult{
		Path:        []string{"SURABAYA", "MOJOKERTO", "MALANG"},
		Legs:        []routing.Leg{{From: "SURABAYA", To: "MOJOKERTO", Cost: 4}, {From: "MOJOKERTO", To: "MALANG", Cost: 8}},
		TotalCost:   12,
		Expanded:    3,
		OptimalCost: &optimal,
	}
	require.NoError(t, c.Put(ctx, sampleKey(), want))

	got, err := c.Get(ctx, sampleKey())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	got, err := c.Get(context.Background(), sampleKey())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpiry(t *testing.T) {
	c, mr := setupCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleKey(), &routing.RouteResult{Path: []string{"GRESIK"}}))
	assert.Equal(t, 30*time.Second, mr.TTL(sampleKey().String()))

	mr.FastForward(31 * time.Second)
	got, err := c.Get(ctx, sampleKey())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDefaultTTL(t *testing.T) {
	c, mr := setupCache(t, 0)
	require.NoError(t, c.Put(context.Background(), sampleKey(), &routing.RouteResult{}))
	assert.Equal(t, DefaultTTL, mr.TTL(sampleKey().String()))
}

func TestCorruptEntry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	require.NoError(t, mr.Set(sampleKey().String(), "{not json"))

	_, err := c.Get(context.Background(), sampleKey())
	require.Error(t, err)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := Dial(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	mr.Close()
	_, err = Dial(context.Background(), mr.Addr(), 0)
	require.Error(t, err)
}
