package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvr/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	newNodes    int
	newTopology string
	newCost     uint32
	newForce    bool
)

// GenerateNetwork creates a network of n nodes with ids 1..n, connected as a line, ring, or full mesh.
func GenerateNetwork(n int, topology string, cost state.Metric) (*state.SimCfg, error) {
	if n < 1 {
		return nil, fmt.Errorf("network must contain at least one node")
	}
	cfg := &state.SimCfg{Seed: 1}
	for i := 1; i <= n; i++ {
		cfg.Nodes = append(cfg.Nodes, state.NodeCfg{Id: state.NodeId(i), Name: fmt.Sprintf("node%d", i)})
	}
	link := func(a, b int) {
		cfg.Links = append(cfg.Links, state.LinkCfg{A: state.NodeId(a), B: state.NodeId(b), Cost: cost})
	}
	switch topology {
	case "line", "ring":
		for i := 1; i < n; i++ {
			link(i, i+1)
		}
		if topology == "ring" && n > 2 {
			link(n, 1)
		}
	case "mesh":
		for i := 1; i <= n; i++ {
			for j := i + 1; j <= n; j++ {
				link(i, j)
			}
		}
	default:
		return nil, fmt.Errorf("unknown topology %q, expected line, ring or mesh", topology)
	}
	state.ExpandSimConfig(cfg)
	return cfg, state.SimConfigValidator(cfg)
}

var netCmd = &cobra.Command{
	Use:   "new-net",
	Short: "Create a new network config",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(configPath); err == nil && !newForce {
			panic(fmt.Errorf("%s already exists, use --force to overwrite it", configPath))
		}
		cfg, err := GenerateNetwork(newNodes, newTopology, state.Metric(newCost))
		if err != nil {
			panic(err)
		}
		ccfg, err := yaml.Marshal(cfg)
		if err != nil {
			panic(err)
		}
		err = os.WriteFile(configPath, ccfg, 0700)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Wrote %s network with %d nodes to %s\n", newTopology, newNodes, configPath)
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(netCmd)

	netCmd.Flags().IntVarP(&newNodes, "nodes", "n", 4, "Number of nodes")
	netCmd.Flags().StringVar(&newTopology, "topology", "ring", "One of line, ring or mesh")
	netCmd.Flags().Uint32Var(&newCost, "cost", 1, "Cost of every link")
	netCmd.Flags().BoolVarP(&newForce, "force", "f", false, "Overwrite an existing config")
}
