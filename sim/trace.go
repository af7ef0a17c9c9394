package sim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvr/state"
)

// RouteChange describes a change to a node's table during a tick. Old or New is nil when the route did not
// exist before or after the tick.
type RouteChange struct {
	Tick uint64
	Node state.NodeId
	Dst  state.NodeId
	Old  *state.Route
	New  *state.Route
}

func (c RouteChange) String() string {
	switch {
	case c.Old == nil:
		return fmt.Sprintf("[%d] node %d: add %d via %s", c.Tick, c.Node, c.Dst, c.New)
	case c.New == nil:
		return fmt.Sprintf("[%d] node %d: remove %d via %s", c.Tick, c.Node, c.Dst, c.Old)
	default:
		return fmt.Sprintf("[%d] node %d: change %d via %s -> %s", c.Tick, c.Node, c.Dst, c.Old, c.New)
	}
}

type Trace struct {
	broadcast.Broadcaster
}

func NewTrace() *Trace {
	return &Trace{
		Broadcaster: broadcast.NewBroadcaster(state.TraceBufferSize),
	}
}

// Subscribe registers a new listener. The returned function unregisters it.
func (t *Trace) Subscribe(buf int) (<-chan interface{}, func()) {
	ch := make(chan interface{}, buf)
	t.Register(ch)
	return ch, func() {
		t.Unregister(ch)
	}
}

func (t *Trace) publishDiff(tick uint64, node state.NodeId, before, after map[state.NodeId]state.Route) {
	keys := slices.Collect(maps.Keys(before))
	for dst := range after {
		if _, ok := before[dst]; !ok {
			keys = append(keys, dst)
		}
	}
	slices.Sort(keys)
	for _, dst := range keys {
		oldRoute, hadOld := before[dst]
		newRoute, hasNew := after[dst]
		if hadOld && hasNew && oldRoute == newRoute {
			continue
		}
		change := RouteChange{Tick: tick, Node: node, Dst: dst}
		if hadOld {
			change.Old = &oldRoute
		}
		if hasNew {
			change.New = &newRoute
		}
		t.Submit(change)
	}
}
