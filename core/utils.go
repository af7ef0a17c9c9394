package core

import "github.com/encodeous/dvr/state"

// AddMetric sums two metrics, saturating at state.INF.
func AddMetric(a, b state.Metric) state.Metric {
	if a == state.INF || b == state.INF {
		return state.INF
	}
	sum := uint64(a) + uint64(b)
	if sum >= uint64(state.INF) {
		return state.INF
	}
	return state.Metric(sum)
}
