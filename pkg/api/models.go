package api

// RouteRequest is the JSON body for POST /api/v1/route. An endpoint is given
// by name, or by coordinate when the name is empty.
type RouteRequest struct {
	Start       string      `json:"start"`
	Goal        string      `json:"goal"`
	StartCoord  *LatLngJSON `json:"start_coord,omitempty"`
	GoalCoord   *LatLngJSON `json:"goal_coord,omitempty"`
	NumPackages int         `json:"num_packages"`
	W1          float64     `json:"w1"`
	W2          float64     `json:"w2"`
	W3          float64     `json:"w3"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Result      string    `json:"result"`
	Path        []string  `json:"path"`
	Legs        []LegJSON `json:"legs"`
	TotalCost   float64   `json:"total_cost"`
	OptimalCost *float64  `json:"optimal_cost,omitempty"`
	Expanded    int       `json:"expanded"`
	Cached      bool      `json:"cached,omitempty"`
}

// LegJSON is one hop of a route.
type LegJSON struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Cost float64 `json:"cost"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// LocationJSON describes a routable location.
type LocationJSON struct {
	Name  string      `json:"name"`
	Coord *LatLngJSON `json:"coord,omitempty"`
}

// LocationsResponse is the JSON response for GET /api/v1/locations.
type LocationsResponse struct {
	Locations []LocationJSON `json:"locations"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Dataset        string `json:"dataset"`
	NumLocations   uint32 `json:"num_locations"`
	NumEdges       uint32 `json:"num_edges"`
	Components     int    `json:"components"`
	HeuristicTable string `json:"heuristic_table"`
	Variant        string `json:"variant,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
