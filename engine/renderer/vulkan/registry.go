package vulkan

import (
	"sort"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/spaghettifunk/velo/engine/core"
)

type ResourceKind int

const (
	KindFrameUniform ResourceKind = iota
	KindMaterialIndex
	KindGeometry
	KindTexture
	KindAllocator
)

func (k ResourceKind) String() string {
	switch k {
	case KindFrameUniform:
		return "frame-uniform"
	case KindMaterialIndex:
		return "material-index"
	case KindGeometry:
		return "geometry"
	case KindTexture:
		return "texture"
	case KindAllocator:
		return "allocator"
	}
	return "unknown"
}

// kindDependencies lists, per kind, the kinds that must outlive it.
var kindDependencies = map[ResourceKind][]ResourceKind{
	KindFrameUniform:  {KindAllocator},
	KindMaterialIndex: {KindAllocator},
	KindGeometry:      {KindAllocator},
	KindTexture:       {KindAllocator},
	KindAllocator:     nil,
}

var teardownOrder = computeTeardownOrder(kindDependencies)

// computeTeardownOrder sorts kinds so that every kind comes before the kinds
// it depends on. Ties keep declaration order.
func computeTeardownOrder(deps map[ResourceKind][]ResourceKind) []ResourceKind {
	kinds := make([]ResourceKind, 0, len(deps))
	for k := range deps {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	// dependents[k] counts kinds not yet destroyed that still need k.
	dependents := make(map[ResourceKind]int, len(kinds))
	for _, k := range kinds {
		for _, d := range deps[k] {
			dependents[d]++
		}
	}

	order := make([]ResourceKind, 0, len(kinds))
	done := make(map[ResourceKind]bool, len(kinds))
	for len(order) < len(kinds) {
		progressed := false
		for _, k := range kinds {
			if done[k] || dependents[k] > 0 {
				continue
			}
			order = append(order, k)
			done[k] = true
			for _, d := range deps[k] {
				dependents[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			panic("resource kind dependencies contain a cycle")
		}
	}
	return order
}

// Resource is anything the registry can own: *Buffer and *Image.
type Resource interface {
	Valid() bool
	Allocation() Allocation
	Destroy()
}

type registryEntry struct {
	kind     ResourceKind
	name     string
	seq      uint64
	resource Resource
}

/**
 * @brief Arena owning every long-lived GPU resource. Destroy releases them in
 * a fixed dependency order and only then the allocator.
 */
type Registry struct {
	allocator MemoryAllocator
	entries   map[uuid.UUID]*registryEntry
	seq       uint64
	destroyed bool
}

func NewRegistry(allocator MemoryAllocator) *Registry {
	return &Registry{
		allocator: allocator,
		entries:   make(map[uuid.UUID]*registryEntry),
	}
}

func (r *Registry) Allocator() MemoryAllocator {
	return r.allocator
}

// Track takes ownership of resource.
func (r *Registry) Track(kind ResourceKind, name string, resource Resource) (uuid.UUID, error) {
	if r.destroyed {
		return uuid.Nil, core.Protocolf("track %q after registry teardown", name)
	}
	if kind == KindAllocator {
		return uuid.Nil, core.Protocolf("the allocator is not a trackable resource")
	}
	if resource == nil || !resource.Valid() {
		return uuid.Nil, core.Protocolf("track %q: resource is not valid", name)
	}
	id := uuid.New()
	r.seq++
	r.entries[id] = &registryEntry{kind: kind, name: name, seq: r.seq, resource: resource}
	core.LogDebug("registered %s %q (%s)", kind, name, id)
	return id, nil
}

// Release destroys a single resource ahead of teardown.
func (r *Registry) Release(id uuid.UUID) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.resource.Destroy()
	delete(r.entries, id)
}

func (r *Registry) Buffer(id uuid.UUID) *Buffer {
	if e, ok := r.entries[id]; ok {
		if b, ok := e.resource.(*Buffer); ok {
			return b
		}
	}
	return nil
}

func (r *Registry) Image(id uuid.UUID) *Image {
	if e, ok := r.entries[id]; ok {
		if img, ok := e.resource.(*Image); ok {
			return img
		}
	}
	return nil
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Destroy releases every tracked resource kind by kind, newest first within a
// kind, then the allocator. Calling it again does nothing.
func (r *Registry) Destroy() {
	if r.destroyed {
		return
	}
	byKind := make(map[ResourceKind][]*registryEntry)
	for _, e := range r.entries {
		byKind[e.kind] = append(byKind[e.kind], e)
	}

	var released uint64
	for _, kind := range teardownOrder {
		if kind == KindAllocator {
			r.allocator.Destroy()
			continue
		}
		list := byKind[kind]
		sort.Slice(list, func(i, j int) bool { return list[i].seq > list[j].seq })
		for _, e := range list {
			if a := e.resource.Allocation(); a != nil {
				released += a.Size()
			}
			e.resource.Destroy()
		}
	}
	core.LogInfo("released %d GPU resources (%s)", len(r.entries), units.BytesSize(float64(released)))
	r.entries = map[uuid.UUID]*registryEntry{}
	r.destroyed = true
}
