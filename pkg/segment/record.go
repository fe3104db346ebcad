package segment

// Record is the metadata persisted alongside each crop. It is written once
// per successful run and never mutated; one .json file per output stem.
type Record struct {
	Source  string      `json:"source"`
	Label   string      `json:"label"`
	Caption string      `json:"caption"`
	Points  [][2]int    `json:"points"`
	Types   []PointType `json:"types"`
	BBox    []int       `json:"bbox"` // [x y w h] in working coordinates, null when no box was found
	Size    *int        `json:"size"` // square resize side, null when no resize was requested
}

// pointPairs flattens prompt points into the [[x,y],...] form the record
// schema uses.
func pointPairs(points []Point) [][2]int {
	pairs := make([][2]int, len(points))
	for i, p := range points {
		pairs[i] = [2]int{p.X, p.Y}
	}
	return pairs
}
