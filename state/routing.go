package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type NodeId uint32

type Metric uint32

// Route is a forwarding table entry. The destination is the key it is stored under.
type Route struct {
	Nh     NodeId // next hop node
	Metric Metric
}

func (r Route) String() string {
	if r.Metric == INF {
		return fmt.Sprintf("(nh: %d, metric: inf)", r.Nh)
	}
	return fmt.Sprintf("(nh: %d, metric: %d)", r.Nh, r.Metric)
}

type Neighbour struct {
	Id NodeId
	// LastHeard is the tick in which we last received anything from this neighbour
	LastHeard uint64
}

// Advertisement maps destination to the sender's selected route.
type Advertisement map[NodeId]Route

type Packet struct {
	Src     NodeId
	Dst     NodeId
	Payload []byte
}

// IsPresence reports whether the packet only announces the sender's existence.
func (p Packet) IsPresence() bool {
	return len(p.Payload) == 0
}

// RouterState must only be accessed by the goroutine ticking the router
type RouterState struct {
	Id         NodeId
	Tick       uint64
	Routes     map[NodeId]Route
	Neighbours []*Neighbour
	// PoisonedAt records the tick at which a route became unreachable
	PoisonedAt map[NodeId]uint64
}

func NewRouterState(id NodeId) *RouterState {
	s := &RouterState{
		Id: id,
	}
	s.Reset()
	return s
}

// Reset drops everything except the route to ourselves.
func (s *RouterState) Reset() {
	s.Tick = 0
	s.Routes = map[NodeId]Route{
		s.Id: {Nh: s.Id, Metric: 0},
	}
	s.Neighbours = make([]*Neighbour, 0)
	s.PoisonedAt = make(map[NodeId]uint64)
}

func (s *RouterState) GetNeighbour(node NodeId) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Id == node
	})
	if nIdx == -1 {
		return nil
	}
	return s.Neighbours[nIdx]
}

func (s *RouterState) IsNeighbour(node NodeId) bool {
	return s.GetNeighbour(node) != nil
}

func (s *RouterState) StringRoutes() string {
	buf := make([]string, 0, len(s.Routes))
	for _, dst := range slices.Sorted(maps.Keys(s.Routes)) {
		buf = append(buf, fmt.Sprintf("%d via %s", dst, s.Routes[dst]))
	}
	return strings.Join(buf, "\n")
}

func (a Advertisement) String() string {
	buf := make([]string, 0, len(a))
	for _, dst := range slices.Sorted(maps.Keys(a)) {
		buf = append(buf, fmt.Sprintf("%d:%s", dst, a[dst]))
	}
	return "{" + strings.Join(buf, ", ") + "}"
}
