package dataset

// Builtin returns the East Java delivery network: six cities, symmetric road
// costs and a full estimated-distance table.
func Builtin() *Dataset {
	return &Dataset{
		Name: "east-java",
		Locations: []Location{
			{Name: "SURABAYA", Coord: &Coord{Lat: -7.2575, Lon: 112.7521}},
			{Name: "SIDOARJO", Coord: &Coord{Lat: -7.4478, Lon: 112.7183}},
			{Name: "GRESIK", Coord: &Coord{Lat: -7.1550, Lon: 112.6560}},
			{Name: "MOJOKERTO", Coord: &Coord{Lat: -7.4722, Lon: 112.4336}},
			{Name: "JOMBANG", Coord: &Coord{Lat: -7.5469, Lon: 112.2331}},
			{Name: "MALANG", Coord: &Coord{Lat: -7.9666, Lon: 112.6326}},
		},
		Edges: []Edge{
			{From: "SURABAYA", To: "SIDOARJO", Cost: 5},
			{From: "SURABAYA", To: "GRESIK", Cost: 9},
			{From: "SURABAYA", To: "MOJOKERTO", Cost: 4},
			{From: "SIDOARJO", To: "GRESIK", Cost: 3},
			{From: "SIDOARJO", To: "JOMBANG", Cost: 7},
			{From: "GRESIK", To: "MOJOKERTO", Cost: 2},
			{From: "GRESIK", To: "JOMBANG", Cost: 6},
			{From: "GRESIK", To: "MALANG", Cost: 3},
			{From: "MOJOKERTO", To: "MALANG", Cost: 8},
			{From: "JOMBANG", To: "MALANG", Cost: 5},
		},
		Estimates: map[string]map[string]float64{
			"SURABAYA":  {"SURABAYA": 0, "SIDOARJO": 70, "GRESIK": 95, "MOJOKERTO": 50, "JOMBANG": 60, "MALANG": 90},
			"SIDOARJO":  {"SURABAYA": 70, "SIDOARJO": 0, "GRESIK": 80, "MOJOKERTO": 40, "JOMBANG": 50, "MALANG": 60},
			"GRESIK":    {"SURABAYA": 95, "SIDOARJO": 80, "GRESIK": 0, "MOJOKERTO": 55, "JOMBANG": 65, "MALANG": 75},
			"MOJOKERTO": {"SURABAYA": 50, "SIDOARJO": 40, "GRESIK": 55, "MOJOKERTO": 0, "JOMBANG": 30, "MALANG": 45},
			"JOMBANG":   {"SURABAYA": 60, "SIDOARJO": 50, "GRESIK": 65, "MOJOKERTO": 30, "JOMBANG": 0, "MALANG": 35},
			"MALANG":    {"SURABAYA": 90, "SIDOARJO": 60, "GRESIK": 75, "MOJOKERTO": 45, "JOMBANG": 35, "MALANG": 0},
		},
	}
}
