package query

import "github.com/o0olele/octree-nav/math32"

// smooth drops waypoints that can be skipped: from each kept waypoint it
// jumps to the farthest later one reachable in a straight line through free
// space. Adjacent waypoints are always kept, so the result is never worse
// than the input.
func (nq *NavigationQuery) smooth(path []math32.Vector3) []math32.Vector3 {
	if len(path) <= 2 {
		return path
	}

	out := make([]math32.Vector3, 0, len(path))
	out = append(out, path[0])
	current := 0
	for current < len(path)-1 {
		next := current + 1
		for j := len(path) - 1; j > next; j-- {
			if nq.tree.SegmentClear(path[current], path[j]) {
				next = j
				break
			}
		}
		out = append(out, path[next])
		current = next
	}
	return out
}
