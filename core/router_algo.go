package core

import (
	"maps"
	"slices"
	"strconv"

	"github.com/encodeous/dvr/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteImproved
	RoutePoisoned
	RouteRemoved
	NeighbourDiscovered
	NeighbourLost
	PoisonCollected
)

// warn events

const (
	MalformedAdvertisement RouterEvent = iota + 1000
	InconsistentState
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteImproved:
		return "RouteImproved"
	case RoutePoisoned:
		return "RoutePoisoned"
	case RouteRemoved:
		return "RouteRemoved"
	case NeighbourDiscovered:
		return "NeighbourDiscovered"
	case NeighbourLost:
		return "NeighbourLost"
	case PoisonCollected:
		return "PoisonCollected"
	case MalformedAdvertisement:
		return "MalformedAdvertisement"
	case InconsistentState:
		return "InconsistentState"
	}
	return "RouterEvent(" + strconv.Itoa(int(e)) + ")"
}

// Router is an interface that defines the underlying router operations
type Router interface {
	LinkCost(neigh state.NodeId) state.Metric
	SendAdvertisement(neigh state.NodeId, adv state.Advertisement)
	BroadcastPresence()
	Log(event RouterEvent, desc string, args ...any)
}

func heardFrom(pkts []state.Packet, node state.NodeId) bool {
	return slices.ContainsFunc(pkts, func(pkt state.Packet) bool {
		return pkt.Src == node
	})
}

func setRoute(s *state.RouterState, dst state.NodeId, route state.Route) {
	s.Routes[dst] = route
	if route.Metric == state.INF {
		if _, ok := s.PoisonedAt[dst]; !ok {
			s.PoisonedAt[dst] = s.Tick
		}
	} else {
		delete(s.PoisonedAt, dst)
	}
}

func deleteRoute(s *state.RouterState, dst state.NodeId) {
	delete(s.Routes, dst)
	delete(s.PoisonedAt, dst)
}

// UpdateNeighbours discovers new neighbours from the senders of this tick's packets, and drops neighbours
// that have been silent for state.NeighbourDeadTicks ticks along with every route through them.
func UpdateNeighbours(s *state.RouterState, r Router, pkts []state.Packet) {
	for _, pkt := range pkts {
		if pkt.Src == s.Id {
			r.Log(InconsistentState, "received packet from ourselves", "pkt", pkt.Src)
			continue
		}
		if n := s.GetNeighbour(pkt.Src); n != nil {
			n.LastHeard = s.Tick
			continue
		}
		s.Neighbours = append(s.Neighbours, &state.Neighbour{
			Id:        pkt.Src,
			LastHeard: s.Tick,
		})
		direct := state.Route{
			Nh:     pkt.Src,
			Metric: r.LinkCost(pkt.Src),
		}
		setRoute(s, pkt.Src, direct)
		r.Log(NeighbourDiscovered, "discovered neighbour", "neigh", pkt.Src, "route", direct)
	}

	alive := s.Neighbours[:0]
	for _, neigh := range s.Neighbours {
		if s.Tick-neigh.LastHeard < state.NeighbourDeadTicks {
			alive = append(alive, neigh)
			continue
		}
		r.Log(NeighbourLost, "neighbour went silent", "neigh", neigh.Id, "lastHeard", neigh.LastHeard)
		for _, dst := range slices.Sorted(maps.Keys(s.Routes)) {
			if route := s.Routes[dst]; route.Nh == neigh.Id {
				deleteRoute(s, dst)
				r.Log(RouteRemoved, "removed route through lost neighbour", "dst", dst, "route", route)
			}
		}
	}
	clear(s.Neighbours[len(alive):])
	s.Neighbours = alive
}

// PoisonSilentRoutes sets the metric of every route whose next hop sent nothing this tick to INF.
// It only runs when we received fewer packets than we have neighbours.
func PoisonSilentRoutes(s *state.RouterState, r Router, pkts []state.Packet) {
	if len(pkts) >= len(s.Neighbours) {
		return
	}
	for _, dst := range slices.Sorted(maps.Keys(s.Routes)) {
		route := s.Routes[dst]
		if dst == s.Id || route.Metric == state.INF || heardFrom(pkts, route.Nh) {
			continue
		}
		route.Metric = state.INF
		setRoute(s, dst, route)
		r.Log(RoutePoisoned, "poisoned route through silent next hop", "dst", dst, "route", route)
	}
}

// HandleAdvertisement relaxes our table against a neighbour's advertisement. A candidate replaces the
// current route if it is strictly cheaper, or if it is infinite so that retractions always propagate.
func HandleAdvertisement(s *state.RouterState, r Router, from state.NodeId, adv state.Advertisement) {
	cost := r.LinkCost(from)
	for _, dst := range slices.Sorted(maps.Keys(adv)) {
		if dst == s.Id {
			continue // our own route is fixed
		}
		candidate := state.Route{
			Nh:     from,
			Metric: AddMetric(cost, adv[dst].Metric),
		}
		cur, ok := s.Routes[dst]
		if !ok {
			setRoute(s, dst, candidate)
			r.Log(RouteAdded, "new route", "dst", dst, "route", candidate)
			continue
		}
		if candidate.Metric < cur.Metric {
			setRoute(s, dst, candidate)
			r.Log(RouteImproved, "improved route", "dst", dst, "old", cur, "new", candidate)
		} else if candidate.Metric == state.INF && cur != candidate {
			setRoute(s, dst, candidate)
			r.Log(RoutePoisoned, "poisoned route from retraction", "dst", dst, "old", cur, "new", candidate)
		}
	}
}

// CollectPoison deletes routes that have been unreachable for state.PoisonGcTicks ticks.
func CollectPoison(s *state.RouterState, r Router) {
	if state.PoisonGcTicks == 0 {
		return
	}
	for _, dst := range slices.Sorted(maps.Keys(s.PoisonedAt)) {
		if s.Tick-s.PoisonedAt[dst] >= state.PoisonGcTicks {
			route := s.Routes[dst]
			deleteRoute(s, dst)
			r.Log(PoisonCollected, "collected unreachable route", "dst", dst, "route", route)
		}
	}
}

// PersonalizedTable returns our table without routes learned from neigh, and without the route to neigh
// itself (split horizon).
func PersonalizedTable(s *state.RouterState, neigh state.NodeId) state.Advertisement {
	adv := make(state.Advertisement, len(s.Routes))
	for dst, route := range s.Routes {
		if route.Nh == neigh || dst == neigh {
			continue
		}
		adv[dst] = route
	}
	return adv
}

// PushTables announces our presence if we know nothing but ourselves, otherwise sends each neighbour a
// personalized copy of our table.
func PushTables(s *state.RouterState, r Router) {
	if len(s.Routes) == 1 {
		r.BroadcastPresence()
		return
	}
	for _, neigh := range s.Neighbours {
		r.SendAdvertisement(neigh.Id, PersonalizedTable(s, neigh.Id))
	}
}

// RunTick executes one protocol round against the packets received since the last tick.
// adverts holds the decoded payload of every non-presence packet, in the same order as pkts.
func RunTick(s *state.RouterState, r Router, pkts []state.Packet, adverts []state.Pair[state.NodeId, state.Advertisement]) {
	s.Tick++
	UpdateNeighbours(s, r, pkts)
	PoisonSilentRoutes(s, r, pkts)
	for _, adv := range adverts {
		HandleAdvertisement(s, r, adv.V1, adv.V2)
	}
	CollectPoison(s, r)
	PushTables(s, r)
}
