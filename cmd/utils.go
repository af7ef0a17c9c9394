package cmd

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/encodeous/dvr/sim"
	"github.com/encodeous/dvr/state"
	"gopkg.in/yaml.v3"
)

func loadConfig(path string) (*state.SimCfg, error) {
	cfg, err := state.ReadSimCfg(path)
	if err != nil {
		return nil, err
	}
	err = state.SimConfigValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid network config %s: %w", path, err)
	}
	return cfg, nil
}

// forwardingYaml renders every node's forwarding table, keyed by node name.
func forwardingYaml(v *sim.VirtualNetwork) (string, error) {
	out := make(map[string]map[state.NodeId]state.NodeId)
	for _, node := range v.Nodes {
		out[node.Cfg.DisplayName()] = node.Router.ForwardingTable()
	}
	bytes, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func writeReport(w io.Writer, report sim.Report) {
	fmt.Fprintf(w, "tick %d: %d/%d reachable pairs delivered, %d optimal (score %.3f)\n",
		report.Tick, report.Delivered, report.Reachable, report.Optimal, report.Score())
	failures := report.Failures()
	slices.SortFunc(failures, func(a, b sim.PairResult) int {
		return cmp.Or(cmp.Compare(a.Src, b.Src), cmp.Compare(a.Dst, b.Dst))
	})
	for _, res := range failures {
		if res.Err != nil {
			fmt.Fprintf(w, "\t%d -> %d: %v (path %v)\n", res.Src, res.Dst, res.Err, res.Path)
		} else {
			fmt.Fprintf(w, "\t%d -> %d: cost %d, cheapest is %d (path %v)\n", res.Src, res.Dst, res.Cost, res.Optimal, res.Path)
		}
	}
	if report.Converged() {
		fmt.Fprintln(w, "converged")
	}
}

func nodeNames(cfg *state.SimCfg) []string {
	names := make(map[string]struct{})
	for _, node := range cfg.Nodes {
		names[node.DisplayName()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names))
}
