package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func NodeConfigValidator(node *NodeCfg) error {
	if node.Id == Broadcast {
		return fmt.Errorf("node id %d is reserved for broadcast", Broadcast)
	}
	if node.Name != "" {
		err := NameValidator(node.Name)
		if err != nil {
			return err
		}
	}
	if !node.Prefix.IsValid() {
		return fmt.Errorf("node %d has an invalid prefix", node.Id)
	}
	return nil
}

func SimConfigValidator(cfg *SimCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("network must contain at least one node")
	}
	ids := make([]NodeId, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		err := NodeConfigValidator(&node)
		if err != nil {
			return err
		}
		if slices.Contains(ids, node.Id) {
			return fmt.Errorf("duplicate node id: %d", node.Id)
		}
		for _, other := range cfg.Nodes {
			if other.Id != node.Id && other.Prefix.Overlaps(node.Prefix) {
				return fmt.Errorf("prefix %s of node %d overlaps prefix %s of node %d", node.Prefix, node.Id, other.Prefix, other.Id)
			}
		}
		ids = append(ids, node.Id)
	}

	nodeRel := make([]Pair[NodeId, NodeId], 0)
	for _, link := range cfg.Links {
		edge := Pair[NodeId, NodeId]{link.A, link.B}
		if link.A == link.B {
			return fmt.Errorf("link %d, %d connects a node to itself", link.A, link.B)
		}
		if slices.Contains(nodeRel, edge) {
			return fmt.Errorf("duplicate link found: %d, %d", link.A, link.B)
		}
		if !slices.Contains(ids, link.A) {
			return fmt.Errorf("node %d not defined", link.A)
		}
		if !slices.Contains(ids, link.B) {
			return fmt.Errorf("node %d not defined", link.B)
		}
		if link.Cost >= INFM {
			return fmt.Errorf("link %d, %d has cost %d which is not below infinity", link.A, link.B, link.Cost)
		}
		if link.PacketLoss < 0 || link.PacketLoss >= 1 {
			return fmt.Errorf("link %d, %d has packet loss %v outside of [0, 1)", link.A, link.B, link.PacketLoss)
		}
		nodeRel = append(nodeRel, edge)
		nodeRel = append(nodeRel, Pair[NodeId, NodeId]{link.B, link.A})
	}

	for _, ev := range cfg.Events {
		if cfg.GetLink(ev.A, ev.B) == nil {
			return fmt.Errorf("event at tick %d refers to unknown link %d, %d", ev.Tick, ev.A, ev.B)
		}
		switch ev.Kind {
		case LinkDown, LinkUp:
		case LinkCost:
			if ev.Cost >= INFM {
				return fmt.Errorf("event at tick %d sets cost %d which is not below infinity", ev.Tick, ev.Cost)
			}
		default:
			return fmt.Errorf("event at tick %d has unknown kind %q", ev.Tick, ev.Kind)
		}
	}
	return nil
}
