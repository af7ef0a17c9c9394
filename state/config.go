package state

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/goccy/go-yaml"
)

// NodeCfg describes a simulated router
type NodeCfg struct {
	Id     NodeId
	Name   string       `yaml:",omitempty"`
	Prefix netip.Prefix `yaml:",omitempty"` // address the dataplane validator uses for this node
}

// LinkCfg is a bidirectional link between two nodes
type LinkCfg struct {
	A          NodeId
	B          NodeId
	Cost       Metric
	PacketLoss float64 `yaml:"packet_loss,omitempty"` // probability in [0, 1) that a packet on this link is dropped
	Down       bool    `yaml:",omitempty"`            // link starts disconnected
}

type LinkEventKind string

const (
	LinkDown LinkEventKind = "down"
	LinkUp   LinkEventKind = "up"
	LinkCost LinkEventKind = "cost"
)

// LinkEventCfg changes a link right before the given tick runs
type LinkEventCfg struct {
	Tick uint64
	Kind LinkEventKind
	A    NodeId
	B    NodeId
	Cost Metric `yaml:",omitempty"` // new cost, only for cost events
}

// SimCfg is the on-disk description of a simulated network
type SimCfg struct {
	Seed          uint64         `yaml:",omitempty"`
	Ticks         uint64         `yaml:",omitempty"`
	DeadTicks     uint64         `yaml:"dead_ticks,omitempty"`      // overrides NeighbourDeadTicks
	PoisonGcTicks uint64         `yaml:"poison_gc_ticks,omitempty"` // overrides PoisonGcTicks
	Nodes         []NodeCfg
	Links         []LinkCfg
	Events        []LinkEventCfg `yaml:",omitempty"`
}

func (c *SimCfg) GetNode(id NodeId) *NodeCfg {
	for i := range c.Nodes {
		if c.Nodes[i].Id == id {
			return &c.Nodes[i]
		}
	}
	return nil
}

func (c *SimCfg) GetLink(a, b NodeId) *LinkCfg {
	for i := range c.Links {
		l := &c.Links[i]
		if l.A == a && l.B == b || l.A == b && l.B == a {
			return l
		}
	}
	return nil
}

// DisplayName returns the configured name, or the numeric id if there is none.
func (n NodeCfg) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("%d", n.Id)
}

// ExpandSimConfig fills in defaults that are not required in the file.
func ExpandSimConfig(cfg *SimCfg) {
	for i := range cfg.Nodes {
		n := &cfg.Nodes[i]
		if !n.Prefix.IsValid() {
			// 10.x.y.z/32 derived from the node id
			id := uint32(n.Id)
			addr := netip.AddrFrom4([4]byte{10, byte(id >> 16), byte(id >> 8), byte(id)})
			n.Prefix = netip.PrefixFrom(addr, 32)
		}
	}
}

// ApplyTunables copies protocol overrides from the config into the package-level tunables.
func (c *SimCfg) ApplyTunables() {
	if c.DeadTicks != 0 {
		NeighbourDeadTicks = c.DeadTicks
	}
	if c.PoisonGcTicks != 0 {
		PoisonGcTicks = c.PoisonGcTicks
	}
}

func ParseSimCfg(data []byte) (*SimCfg, error) {
	var cfg SimCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse network config: %w", err)
	}
	ExpandSimConfig(&cfg)
	return &cfg, nil
}

func ReadSimCfg(path string) (*SimCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSimCfg(file)
}
