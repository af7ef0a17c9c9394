package sim

import (
	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/state"
)

// ShortestPaths returns the cost of the cheapest path from src to every node over links that are up.
// Unreachable nodes have a cost of state.INF.
func (v *VirtualNetwork) ShortestPaths(src state.NodeId) map[state.NodeId]state.Metric {
	size := len(v.Nodes)
	distances := make(map[state.NodeId]state.Metric, size)
	for _, node := range v.Nodes {
		distances[node.Cfg.Id] = state.INF
	}
	distances[src] = 0

	for i := 0; i < size-1; i++ {
		changed := false
		for _, link := range v.Links {
			if link.Down {
				continue
			}
			for _, dir := range [2]state.Pair[state.NodeId, state.NodeId]{
				{V1: link.Edge.V1, V2: link.Edge.V2},
				{V1: link.Edge.V2, V2: link.Edge.V1},
			} {
				newDist := core.AddMetric(distances[dir.V1], link.Cost)
				if newDist < distances[dir.V2] {
					distances[dir.V2] = newDist
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return distances
}
