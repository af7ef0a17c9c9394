package state

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("abcd-a.com"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("1A"))
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func validCfg() *SimCfg {
	cfg := &SimCfg{
		Nodes: []NodeCfg{{Id: 1}, {Id: 2}, {Id: 3}},
		Links: []LinkCfg{
			{A: 1, B: 2, Cost: 1},
			{A: 2, B: 3, Cost: 5},
		},
		Events: []LinkEventCfg{
			{Tick: 3, Kind: LinkDown, A: 1, B: 2},
			{Tick: 5, Kind: LinkCost, A: 3, B: 2, Cost: 2},
		},
	}
	ExpandSimConfig(cfg)
	return cfg
}

func TestSimConfigValidator_Valid(t *testing.T) {
	assert.NoError(t, SimConfigValidator(validCfg()))
}

func TestSimConfigValidator_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *SimCfg)
		err    string
	}{
		{"empty", func(cfg *SimCfg) { cfg.Nodes = nil }, "at least one node"},
		{"broadcast id", func(cfg *SimCfg) { cfg.Nodes[0].Id = Broadcast }, "reserved for broadcast"},
		{"bad name", func(cfg *SimCfg) { cfg.Nodes[0].Name = "Bad Name" }, "not a valid name"},
		{"missing prefix", func(cfg *SimCfg) { cfg.Nodes[0].Prefix = netip.Prefix{} }, "invalid prefix"},
		{"duplicate node", func(cfg *SimCfg) { cfg.Nodes[2].Id = 1 }, "duplicate node id: 1"},
		{"overlapping prefix", func(cfg *SimCfg) {
			cfg.Nodes[2].Prefix = netip.MustParsePrefix("10.0.0.0/24")
		}, "overlaps"},
		{"self link", func(cfg *SimCfg) { cfg.Links[0].B = 1 }, "connects a node to itself"},
		{"duplicate link", func(cfg *SimCfg) {
			cfg.Links = append(cfg.Links, LinkCfg{A: 2, B: 1, Cost: 3})
		}, "duplicate link found: 2, 1"},
		{"unknown node", func(cfg *SimCfg) { cfg.Links[1].B = 4 }, "node 4 not defined"},
		{"infinite cost", func(cfg *SimCfg) { cfg.Links[0].Cost = INF }, "not below infinity"},
		{"packet loss", func(cfg *SimCfg) { cfg.Links[0].PacketLoss = 1 }, "outside of [0, 1)"},
		{"event on unknown link", func(cfg *SimCfg) { cfg.Events[0].B = 3 }, "unknown link 1, 3"},
		{"event cost", func(cfg *SimCfg) { cfg.Events[1].Cost = INFM }, "not below infinity"},
		{"event kind", func(cfg *SimCfg) { cfg.Events[0].Kind = "flap" }, `unknown kind "flap"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validCfg()
			tc.modify(cfg)
			assert.ErrorContains(t, SimConfigValidator(cfg), tc.err)
		})
	}
}

func TestPathValidator(t *testing.T) {
	assert.NoError(t, PathValidator(t.TempDir()+"/out.log"))
	assert.Error(t, PathValidator(t.TempDir()+"/missing/out.log"))
}
