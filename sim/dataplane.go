package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/state"
	"github.com/gaissmai/bart"
)

var (
	ErrNoRoute     = errors.New("no route to destination")
	ErrLinkDown    = errors.New("next hop is not reachable over a working link")
	ErrRoutingLoop = errors.New("routing loop")
	ErrHopLimit    = errors.New("hop limit exceeded")
)

// Dataplane is a snapshot of every node's forwarding table, installed into longest-prefix-match tables
// keyed by the node prefixes.
type Dataplane struct {
	net    *VirtualNetwork
	tables map[state.NodeId]*bart.Table[state.NodeId]
}

func NewDataplane(v *VirtualNetwork) *Dataplane {
	d := &Dataplane{
		net:    v,
		tables: make(map[state.NodeId]*bart.Table[state.NodeId], len(v.Nodes)),
	}
	for _, node := range v.Nodes {
		tbl := &bart.Table[state.NodeId]{}
		for dst, nh := range node.Router.ForwardingTable() {
			dstNode := v.GetNode(dst)
			if dstNode == nil {
				continue // route to a node that isn't part of the network
			}
			tbl.Insert(dstNode.Cfg.Prefix, nh)
		}
		d.tables[node.Cfg.Id] = tbl
	}
	return d
}

// Trace follows next hops from src until dst is reached, returning the nodes visited (including both ends)
// and the total link cost.
func (d *Dataplane) Trace(src, dst state.NodeId) ([]state.NodeId, state.Metric, error) {
	dstNode := d.net.GetNode(dst)
	if dstNode == nil {
		return nil, state.INF, fmt.Errorf("unknown destination %d", dst)
	}
	addr := dstNode.Cfg.Prefix.Addr()
	path := []state.NodeId{src}
	cost := state.Metric(0)
	cur := src
	for range state.TraceHopLimit {
		if cur == dst {
			return path, cost, nil
		}
		tbl, ok := d.tables[cur]
		if !ok {
			return path, state.INF, fmt.Errorf("unknown node %d", cur)
		}
		nh, ok := tbl.Lookup(addr)
		if !ok {
			return path, state.INF, fmt.Errorf("%w at node %d", ErrNoRoute, cur)
		}
		link := d.net.GetLink(cur, nh)
		if link == nil || link.Down {
			return path, state.INF, fmt.Errorf("%w: %d -> %d", ErrLinkDown, cur, nh)
		}
		if slices.Contains(path, nh) {
			return append(path, nh), state.INF, fmt.Errorf("%w: %v", ErrRoutingLoop, append(path, nh))
		}
		path = append(path, nh)
		cost = core.AddMetric(cost, link.Cost)
		cur = nh
	}
	return path, state.INF, ErrHopLimit
}

type PairResult struct {
	Src     state.NodeId
	Dst     state.NodeId
	Path    []state.NodeId
	Cost    state.Metric
	Optimal state.Metric
	Err     error
}

func (p PairResult) IsOptimal() bool {
	return p.Err == nil && p.Cost == p.Optimal
}

type Report struct {
	Tick      uint64
	Results   []PairResult
	Reachable int // pairs connected by working links
	Delivered int // reachable pairs whose trace arrived
	Optimal   int // delivered pairs that used a cheapest path
}

// Converged reports whether every reachable destination is reached over a cheapest path.
func (r Report) Converged() bool {
	return r.Optimal == r.Reachable
}

// Score is the fraction of reachable pairs that are routed optimally.
func (r Report) Score() float64 {
	if r.Reachable == 0 {
		return 1
	}
	return float64(r.Optimal) / float64(r.Reachable)
}

func (r Report) Failures() []PairResult {
	out := make([]PairResult, 0)
	for _, res := range r.Results {
		if res.Optimal != state.INF && !res.IsOptimal() {
			out = append(out, res)
		}
	}
	return out
}

// Validate traces every ordered pair of distinct nodes through the current forwarding tables.
func (v *VirtualNetwork) Validate() Report {
	d := NewDataplane(v)
	report := Report{Tick: v.Tick}
	for _, src := range v.Nodes {
		optimal := v.ShortestPaths(src.Cfg.Id)
		for _, dst := range v.Nodes {
			if src == dst {
				continue
			}
			res := PairResult{
				Src:     src.Cfg.Id,
				Dst:     dst.Cfg.Id,
				Optimal: optimal[dst.Cfg.Id],
			}
			res.Path, res.Cost, res.Err = d.Trace(res.Src, res.Dst)
			if res.Optimal != state.INF {
				report.Reachable++
				if res.Err == nil {
					report.Delivered++
				}
				if res.IsOptimal() {
					report.Optimal++
				}
			}
			report.Results = append(report.Results, res)
		}
	}
	return report
}
