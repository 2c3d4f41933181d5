package collider

import (
	"sort"
	"sync"

	"github.com/o0olele/octree-nav/geometry"
)

// DefaultLayers is the layer set of a collider registered without one.
const DefaultLayers uint32 = 1

// ID identifies a collider. Producers typically use a uuid string.
type ID string

// Collider is one registered obstacle.
type Collider struct {
	ID     ID           `json:"id"`
	Box    geometry.OBB `json:"box"`
	Layers uint32       `json:"layers"`
}

func (c *Collider) matches(mask uint32) bool {
	return mask == 0 || c.Layers&mask != 0
}

// Registry maps collider ids to world boxes. Writers replace whole entries
// under a lock, so readers never see a half updated box. It implements
// octree.ObstacleSource.
type Registry struct {
	mu        sync.RWMutex
	colliders map[ID]*Collider
	closed    bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{colliders: make(map[ID]*Collider)}
}

// Upsert inserts or replaces the collider id with the shape on the default
// layer.
func (r *Registry) Upsert(id ID, shape geometry.ColliderShape) {
	r.UpsertLayers(id, shape, DefaultLayers)
}

// UpsertLayers inserts or replaces the collider id with the shape on layers.
func (r *Registry) UpsertLayers(id ID, shape geometry.ColliderShape, layers uint32) {
	box := shape.ToOBB()
	box.Axes()
	c := &Collider{ID: id, Box: box, Layers: layers}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.colliders[id] = c
}

// Remove deletes id and reports whether it was present.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.colliders[id]
	delete(r.colliders, id)
	return ok
}

// Get returns a copy of the collider id.
func (r *Registry) Get(id ID) (Collider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.colliders[id]
	if !ok {
		return Collider{}, false
	}
	return *c, true
}

// Len returns the number of colliders.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.colliders)
}

// Clear removes every collider.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colliders = make(map[ID]*Collider)
}

// Close drops all colliders and ignores later upserts.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colliders = make(map[ID]*Collider)
	r.closed = true
}

// Intersects reports whether box overlaps any collider on the masked layers.
// An empty registry never intersects.
func (r *Registry) Intersects(box *geometry.OBB, mask uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.colliders {
		if c.matches(mask) && geometry.Intersects(box, &c.Box) {
			return true
		}
	}
	return false
}

// Overlaps tests an axis-aligned region against the registry.
func (r *Registry) Overlaps(bounds geometry.AABB, mask uint32) bool {
	probe := geometry.NewAxisAlignedOBB(bounds)
	return r.Intersects(&probe, mask)
}

// Snapshot copies the colliders, ordered by id, into a frozen set that a
// build can read while producers keep writing to the registry.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	out := make(Snapshot, 0, len(r.colliders))
	for _, c := range r.colliders {
		out = append(out, *c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot is an immutable collider set. It implements octree.ObstacleSource.
type Snapshot []Collider

// Overlaps tests an axis-aligned region against the snapshot.
func (s Snapshot) Overlaps(bounds geometry.AABB, mask uint32) bool {
	probe := geometry.NewAxisAlignedOBB(bounds)
	for i := range s {
		if s[i].matches(mask) && geometry.Intersects(&probe, &s[i].Box) {
			return true
		}
	}
	return false
}

// Boxes returns the boxes of the snapshot.
func (s Snapshot) Boxes() []geometry.OBB {
	out := make([]geometry.OBB, len(s))
	for i := range s {
		out[i] = s[i].Box
	}
	return out
}
