package query

// Options tunes the A* search.
type Options struct {
	// IterationFactor bounds a search to IterationFactor * node count
	// expansions.
	IterationFactor int `json:"iteration_factor"`
	// SnapEndpoints adds the exact start and end positions to the waypoint
	// list when they are farther than sqrt(SnapThresholdSq) from the first
	// and last leaf centers.
	SnapEndpoints   bool    `json:"snap_endpoints"`
	SnapThresholdSq float32 `json:"snap_threshold_sq"`
	// ReopenClosed lets a closed node re-enter the open set when a cheaper
	// route to it is found. With the Euclidean heuristic this never changes
	// the result, so it is off by default.
	ReopenClosed bool `json:"reopen_closed"`
	// Smooth removes intermediate waypoints that have a clear straight line
	// past them. Result.Cost still reports the unsmoothed leaf-to-leaf cost.
	Smooth bool `json:"smooth"`
}

// DefaultOptions returns the defaults: a budget of twice the node count,
// leaf-center waypoints only, closed nodes stay closed.
func DefaultOptions() Options {
	return Options{
		IterationFactor: 2,
		SnapThresholdSq: 0.01,
	}
}

func (o Options) normalized() Options {
	if o.IterationFactor <= 0 {
		o.IterationFactor = 2
	}
	if o.SnapThresholdSq <= 0 {
		o.SnapThresholdSq = 0.01
	}
	return o
}
