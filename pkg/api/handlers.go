package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parcel_router/pkg/cache"
	"parcel_router/pkg/geo"
	"parcel_router/pkg/heuristic"
	"parcel_router/pkg/routing"
)

const maxBodyBytes = 4096

// RouteCache stores route results between requests.
type RouteCache interface {
	Get(ctx context.Context, k cache.Key) (*routing.RouteResult, error)
	Put(ctx context.Context, k cache.Key, res *routing.RouteResult) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router    routing.Router
	stats     StatsResponse
	locations []LocationJSON
	cache     RouteCache
}

// NewHandlers creates handlers with the given router.
func NewHandlers(router routing.Router, stats StatsResponse, locations []LocationJSON) *Handlers {
	return &Handlers{
		router:    router,
		stats:     stats,
		locations: locations,
	}
}

// WithCache enables response caching for name-to-name queries.
func (h *Handlers) WithCache(c RouteCache) *Handlers {
	h.cache = c
	return h
}

// errBadField marks a request field that failed validation.
type errBadField struct {
	code  string
	field string
}

func (e *errBadField) Error() string { return e.code + ": " + e.field }

// HandleRoute handles POST /api/v1/route. Both JSON and form-encoded bodies
// are accepted.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { RouteDurationSeconds.Observe(time.Since(start).Seconds()) }()

	req, err := decodeRouteRequest(w, r)
	if err != nil {
		var bad *errBadField
		if errors.As(err, &bad) {
			h.fail(w, http.StatusBadRequest, bad.code, bad.field)
			return
		}
		h.fail(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	normalize(req)

	if bad := validate(req); bad != nil {
		h.fail(w, http.StatusBadRequest, bad.code, bad.field)
		return
	}

	q := routing.Query{
		Start:       endpoint(req.Start, req.StartCoord),
		Goal:        endpoint(req.Goal, req.GoalCoord),
		NumPackages: req.NumPackages,
		Weights:     weights(req),
	}

	// Cache lookup, only when both endpoints are names.
	var key cache.Key
	cacheable := h.cache != nil && req.Start != "" && req.Goal != ""
	if cacheable {
		key = cache.Key{
			Dataset:     h.stats.Dataset,
			Variant:     h.stats.Variant,
			Start:       req.Start,
			Goal:        req.Goal,
			NumPackages: req.NumPackages,
			Weights:     [3]float64{req.W1, req.W2, req.W3},
		}
		cached, err := h.cache.Get(r.Context(), key)
		switch {
		case err != nil:
			RouteCacheTotal.WithLabelValues("error").Inc()
			log.Printf("route cache get: %v", err)
		case cached != nil:
			RouteCacheTotal.WithLabelValues("hit").Inc()
			RouteRequestsTotal.WithLabelValues("ok").Inc()
			writeJSON(w, http.StatusOK, toResponse(cached, true))
			return
		default:
			RouteCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	result, err := h.router.Route(r.Context(), q)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			log.Printf("route %s -> %s: %v", req.Start, req.Goal, err)
		}
		h.fail(w, status, code, "")
		return
	}
	RouteExpansions.Observe(float64(result.Expanded))

	if cacheable {
		if err := h.cache.Put(r.Context(), key, result); err != nil {
			log.Printf("route cache put: %v", err)
		}
	}

	RouteRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, toResponse(result, false))
}

// HandleLocations handles GET /api/v1/locations.
func (h *Handlers) HandleLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LocationsResponse{Locations: h.locations})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func decodeRouteRequest(w http.ResponseWriter, r *http.Request) (*RouteRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	switch mediaType {
	case "application/json":
		return decodeJSON(r)
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeForm(r)
	default:
		return nil, errors.New("unsupported content type")
	}
}

// routeRequestBody mirrors RouteRequest with the numeric fields optional,
// so that an omitted field can be told apart from an explicit zero.
type routeRequestBody struct {
	Start       string      `json:"start"`
	Goal        string      `json:"goal"`
	StartCoord  *LatLngJSON `json:"start_coord"`
	GoalCoord   *LatLngJSON `json:"goal_coord"`
	NumPackages *int        `json:"num_packages"`
	W1          *float64    `json:"w1"`
	W2          *float64    `json:"w2"`
	W3          *float64    `json:"w3"`
}

// decodeJSON reads a JSON body. Like the form fields, num_packages and
// w1..w3 are required.
func decodeJSON(r *http.Request) (*RouteRequest, error) {
	var body routeRequestBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	req := &RouteRequest{
		Start:      body.Start,
		Goal:       body.Goal,
		StartCoord: body.StartCoord,
		GoalCoord:  body.GoalCoord,
	}

	if body.NumPackages == nil {
		return nil, &errBadField{code: "invalid_number", field: "num_packages"}
	}
	req.NumPackages = *body.NumPackages

	for _, f := range []struct {
		name string
		src  *float64
		dst  *float64
	}{{"w1", body.W1, &req.W1}, {"w2", body.W2, &req.W2}, {"w3", body.W3, &req.W3}} {
		if f.src == nil {
			return nil, &errBadField{code: "invalid_number", field: f.name}
		}
		*f.dst = *f.src
	}
	return req, nil
}

// decodeForm reads the start, goal, num_packages and w1..w3 form fields.
func decodeForm(r *http.Request) (*RouteRequest, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	req := &RouteRequest{
		Start: r.PostFormValue("start"),
		Goal:  r.PostFormValue("goal"),
	}

	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("num_packages")))
	if err != nil {
		return nil, &errBadField{code: "invalid_number", field: "num_packages"}
	}
	req.NumPackages = n

	for _, f := range []struct {
		name string
		dst  *float64
	}{{"w1", &req.W1}, {"w2", &req.W2}, {"w3", &req.W3}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue(f.name)), 64)
		if err != nil {
			return nil, &errBadField{code: "invalid_number", field: f.name}
		}
		*f.dst = v
	}
	return req, nil
}

// normalize upper-cases and trims location names.
func normalize(req *RouteRequest) {
	req.Start = strings.ToUpper(strings.TrimSpace(req.Start))
	req.Goal = strings.ToUpper(strings.TrimSpace(req.Goal))
}

func validate(req *RouteRequest) *errBadField {
	if req.Start == "" && req.StartCoord == nil {
		return &errBadField{code: "invalid_request", field: "start"}
	}
	if req.Goal == "" && req.GoalCoord == nil {
		return &errBadField{code: "invalid_request", field: "goal"}
	}
	if req.Start == "" && !validCoord(req.StartCoord) {
		return &errBadField{code: "invalid_coordinates", field: "start_coord"}
	}
	if req.Goal == "" && !validCoord(req.GoalCoord) {
		return &errBadField{code: "invalid_coordinates", field: "goal_coord"}
	}
	if req.NumPackages < 0 {
		return &errBadField{code: "invalid_packages", field: "num_packages"}
	}
	if !weights(req).Valid() {
		return &errBadField{code: "invalid_weights", field: "weights"}
	}
	return nil
}

func weights(req *RouteRequest) heuristic.Weights {
	return heuristic.Weights{Distance: req.W1, Duration: req.W2, Load: req.W3}
}

func validCoord(ll *LatLngJSON) bool {
	return ll != nil && geo.ValidCoord(ll.Lat, ll.Lng)
}

func endpoint(name string, coord *LatLngJSON) routing.Endpoint {
	ep := routing.Endpoint{Name: name}
	if name == "" && coord != nil {
		ep.Coord = &routing.LatLng{Lat: coord.Lat, Lng: coord.Lng}
	}
	return ep
}

// classify maps a routing error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, routing.ErrUnknownLocation):
		return http.StatusBadRequest, "unknown_location"
	case errors.Is(err, routing.ErrMissingEndpoint):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, routing.ErrSnapUnavailable):
		return http.StatusBadRequest, "coordinates_unsupported"
	case errors.Is(err, routing.ErrNoRoute):
		return http.StatusNotFound, "no_route_found"
	case errors.Is(err, routing.ErrPointTooFar):
		return http.StatusUnprocessableEntity, "point_too_far"
	case errors.Is(err, routing.ErrExpansionLimit):
		return http.StatusServiceUnavailable, "search_limit_exceeded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func toResponse(res *routing.RouteResult, cached bool) RouteResponse {
	resp := RouteResponse{
		Result:      "route found: " + strings.Join(res.Path, " -> "),
		Path:        res.Path,
		Legs:        make([]LegJSON, len(res.Legs)),
		TotalCost:   res.TotalCost,
		OptimalCost: res.OptimalCost,
		Expanded:    res.Expanded,
		Cached:      cached,
	}
	for i, l := range res.Legs {
		resp.Legs[i] = LegJSON{From: l.From, To: l.To, Cost: l.Cost}
	}
	return resp
}

func (h *Handlers) fail(w http.ResponseWriter, status int, code, field string) {
	RouteRequestsTotal.WithLabelValues(code).Inc()
	writeError(w, status, code, field)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
