package sim

import (
	"context"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/state"
	"github.com/google/uuid"
)

type VirtualLink struct {
	Id         uuid.UUID
	Edge       state.Pair[state.NodeId, state.NodeId]
	Cost       state.Metric
	PacketLoss float64
	Down       bool
}

func (v *VirtualLink) Connects(a, b state.NodeId) bool {
	return v.Edge.V1 == a && v.Edge.V2 == b || v.Edge.V1 == b && v.Edge.V2 == a
}

// Other returns the end of the link that isn't node
func (v *VirtualLink) Other(node state.NodeId) state.NodeId {
	if v.Edge.V1 == node {
		return v.Edge.V2
	}
	return v.Edge.V1
}

func (v *VirtualLink) WithCost(cost state.Metric) *VirtualLink {
	v.Cost = cost
	return v
}

func (v *VirtualLink) WithPacketLoss(loss float64) *VirtualLink {
	v.PacketLoss = loss
	return v
}

// VirtualNode is the link layer seen by a single router
type VirtualNode struct {
	Cfg    state.NodeCfg
	Router *core.DistanceVectorRouter
	net    *VirtualNetwork
}

func (n *VirtualNode) OwnAddress() state.NodeId {
	return n.Cfg.Id
}

func (n *VirtualNode) LinkCost(neigh state.NodeId) state.Metric {
	link := n.net.GetLink(n.Cfg.Id, neigh)
	if link == nil || link.Down {
		return state.INF
	}
	return link.Cost
}

func (n *VirtualNode) Transmit(pkt state.Packet) {
	n.net.transmit(n.Cfg.Id, pkt)
}

// VirtualNetwork delivers packets between routers in discrete ticks. Everything sent during tick t is
// received at tick t+1.
type VirtualNetwork struct {
	RunId uuid.UUID
	Cfg   *state.SimCfg
	Nodes []*VirtualNode
	Links []*VirtualLink
	Tick  uint64
	Log   *slog.Logger
	// Trace receives a RouteChange for every forwarding table change, if set
	Trace   *Trace
	rng     *rand.Rand
	pending map[state.NodeId][]state.Packet
}

// LoggerFactory creates the logger used by a node's router
type LoggerFactory func(node state.NodeCfg) *slog.Logger

func NewVirtualNetwork(cfg *state.SimCfg, log *slog.Logger, nodeLog LoggerFactory) *VirtualNetwork {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	v := &VirtualNetwork{
		RunId:   uuid.New(),
		Cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		pending: make(map[state.NodeId][]state.Packet),
	}
	v.Log = log.With("run", v.RunId.String())
	for _, lc := range cfg.Links {
		v.AddLink(lc.A, lc.B).WithCost(lc.Cost).WithPacketLoss(lc.PacketLoss).Down = lc.Down
	}
	for _, nc := range cfg.Nodes {
		var rlog *slog.Logger
		if nodeLog != nil {
			rlog = nodeLog(nc)
		} else {
			rlog = v.Log.With("node", nc.DisplayName())
		}
		node := &VirtualNode{
			Cfg:    nc,
			Router: core.NewRouter(rlog),
			net:    v,
		}
		node.Router.Init(node)
		v.Nodes = append(v.Nodes, node)
	}
	return v
}

func (v *VirtualNetwork) AddLink(a, b state.NodeId) *VirtualLink {
	link := &VirtualLink{
		Id:   uuid.New(),
		Edge: state.Pair[state.NodeId, state.NodeId]{V1: a, V2: b},
	}
	v.Links = append(v.Links, link)
	return link
}

func (v *VirtualNetwork) GetLink(a, b state.NodeId) *VirtualLink {
	idx := slices.IndexFunc(v.Links, func(link *VirtualLink) bool {
		return link.Connects(a, b)
	})
	if idx == -1 {
		return nil
	}
	return v.Links[idx]
}

func (v *VirtualNetwork) GetNode(id state.NodeId) *VirtualNode {
	idx := slices.IndexFunc(v.Nodes, func(node *VirtualNode) bool {
		return node.Cfg.Id == id
	})
	if idx == -1 {
		return nil
	}
	return v.Nodes[idx]
}

func (v *VirtualNetwork) transmit(from state.NodeId, pkt state.Packet) {
	if pkt.Dst == state.Broadcast {
		for _, link := range v.Links {
			if link.Edge.V1 == from || link.Edge.V2 == from {
				v.deliver(link, link.Other(from), pkt)
			}
		}
		return
	}
	link := v.GetLink(from, pkt.Dst)
	if link == nil {
		perf.DroppedPacketPerSecond.Add(1)
		v.Log.Debug("dropped packet to non-adjacent node", "from", from, "to", pkt.Dst)
		return
	}
	v.deliver(link, pkt.Dst, pkt)
}

func (v *VirtualNetwork) deliver(link *VirtualLink, to state.NodeId, pkt state.Packet) {
	if link.Down || v.rng.Float64() < link.PacketLoss {
		perf.DroppedPacketPerSecond.Add(1)
		return
	}
	v.pending[to] = append(v.pending[to], pkt)
}

func (v *VirtualNetwork) applyEvents() {
	for _, ev := range v.Cfg.Events {
		if ev.Tick != v.Tick {
			continue
		}
		link := v.GetLink(ev.A, ev.B)
		if link == nil {
			v.Log.Warn("event refers to unknown link", "a", ev.A, "b", ev.B)
			continue
		}
		switch ev.Kind {
		case state.LinkDown:
			link.Down = true
		case state.LinkUp:
			link.Down = false
		case state.LinkCost:
			link.Cost = ev.Cost
		}
		v.Log.Info("link event", "tick", v.Tick, "kind", ev.Kind, "a", ev.A, "b", ev.B, "cost", link.Cost)
	}
}

// Step runs a single tick on every node.
func (v *VirtualNetwork) Step() {
	v.Tick++
	v.applyEvents()

	inbox := v.pending
	v.pending = make(map[state.NodeId][]state.Packet)
	for _, node := range v.Nodes {
		pkts := inbox[node.Cfg.Id]
		// packets in flight when a link went down are lost
		pkts = slices.DeleteFunc(pkts, func(pkt state.Packet) bool {
			link := v.GetLink(pkt.Src, node.Cfg.Id)
			return link == nil || link.Down
		})
		var before map[state.NodeId]state.Route
		if v.Trace != nil {
			before = maps.Clone(node.Router.Routes)
		}
		node.Router.Tick(pkts)
		if v.Trace != nil {
			v.Trace.publishDiff(v.Tick, node.Cfg.Id, before, node.Router.Routes)
		}
	}
}

func (v *VirtualNetwork) StepN(n uint64) {
	for range n {
		v.Step()
	}
}

// StepUntilStable ticks until no route changed for quiet consecutive ticks, or limit ticks have passed.
// It returns true if the network became stable.
func (v *VirtualNetwork) StepUntilStable(quiet, limit uint64) bool {
	last := v.routeSnapshot()
	var unchanged uint64
	for range limit {
		v.Step()
		cur := v.routeSnapshot()
		if snapshotsEqual(last, cur) {
			unchanged++
			if unchanged >= quiet {
				return true
			}
		} else {
			unchanged = 0
		}
		last = cur
	}
	return false
}

// Run ticks the network every interval until the context is cancelled, or maxTicks ticks have run
// (0 means forever).
func (v *VirtualNetwork) Run(ctx context.Context, interval time.Duration, maxTicks uint64) error {
	v.Log.Info("started simulation", "interval", interval, "nodes", len(v.Nodes), "links", len(v.Links))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			v.Log.Info("stopped simulation", "reason", context.Cause(ctx).Error(), "tick", v.Tick)
			return nil
		case <-ticker.C:
			start := time.Now()
			v.Step()
			if elapsed := time.Since(start); elapsed > interval {
				v.Log.Warn("tick took longer than the tick interval", "elapsed", elapsed, "tick", v.Tick)
			}
			if maxTicks != 0 && v.Tick >= maxTicks {
				v.Log.Info("finished simulation", "tick", v.Tick)
				return nil
			}
		}
	}
}

func (v *VirtualNetwork) ForwardingTables() map[state.NodeId]map[state.NodeId]state.NodeId {
	out := make(map[state.NodeId]map[state.NodeId]state.NodeId, len(v.Nodes))
	for _, node := range v.Nodes {
		out[node.Cfg.Id] = node.Router.ForwardingTable()
	}
	return out
}

func (v *VirtualNetwork) routeSnapshot() map[state.NodeId]map[state.NodeId]state.Route {
	out := make(map[state.NodeId]map[state.NodeId]state.Route, len(v.Nodes))
	for _, node := range v.Nodes {
		out[node.Cfg.Id] = maps.Clone(node.Router.Routes)
	}
	return out
}

func snapshotsEqual(a, b map[state.NodeId]map[state.NodeId]state.Route) bool {
	return maps.EqualFunc(a, b, func(x, y map[state.NodeId]state.Route) bool {
		return maps.Equal(x, y)
	})
}
