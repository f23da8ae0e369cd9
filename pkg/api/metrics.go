package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RouteRequestsTotal counts route requests by outcome code.
	RouteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_router_route_requests_total",
			Help: "Total number of route requests by outcome",
		},
		[]string{"outcome"},
	)

	// RouteDurationSeconds tracks time spent answering route requests.
	RouteDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parcel_router_route_duration_seconds",
			Help:    "Route request latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// RouteExpansions tracks how many locations each search expanded.
	RouteExpansions = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parcel_router_route_expansions",
			Help:    "Locations expanded per successful search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// RouteCacheTotal counts cache lookups by result (hit, miss, error).
	RouteCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcel_router_route_cache_total",
			Help: "Route cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(RouteRequestsTotal)
	prometheus.MustRegister(RouteDurationSeconds)
	prometheus.MustRegister(RouteExpansions)
	prometheus.MustRegister(RouteCacheTotal)
}
