package state

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCfg = `
seed: 7
ticks: 50
dead_ticks: 2
nodes:
  - id: 1
    name: a
  - id: 2
    prefix: 192.168.0.0/24
  - id: 258
links:
  - a: 1
    b: 2
    cost: 4
  - a: 2
    b: 258
    cost: 1
    packet_loss: 0.25
    down: true
events:
  - tick: 10
    kind: up
    a: 2
    b: 258
  - tick: 20
    kind: cost
    a: 1
    b: 2
    cost: 9
`

func TestParseSimCfg(t *testing.T) {
	cfg, err := ParseSimCfg([]byte(sampleCfg))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, uint64(50), cfg.Ticks)
	assert.Equal(t, uint64(2), cfg.DeadTicks)
	assert.Equal(t, []NodeCfg{
		{Id: 1, Name: "a", Prefix: netip.MustParsePrefix("10.0.0.1/32")},
		{Id: 2, Prefix: netip.MustParsePrefix("192.168.0.0/24")},
		{Id: 258, Prefix: netip.MustParsePrefix("10.0.1.2/32")},
	}, cfg.Nodes)
	assert.Equal(t, []LinkCfg{
		{A: 1, B: 2, Cost: 4},
		{A: 2, B: 258, Cost: 1, PacketLoss: 0.25, Down: true},
	}, cfg.Links)
	assert.Equal(t, []LinkEventCfg{
		{Tick: 10, Kind: LinkUp, A: 2, B: 258},
		{Tick: 20, Kind: LinkCost, A: 1, B: 2, Cost: 9},
	}, cfg.Events)
	assert.NoError(t, SimConfigValidator(cfg))

	assert.Equal(t, "a", cfg.GetNode(1).DisplayName())
	assert.Equal(t, "258", cfg.GetNode(258).DisplayName())
	assert.Nil(t, cfg.GetNode(3))
	assert.Same(t, &cfg.Links[1], cfg.GetLink(258, 2))
	assert.Nil(t, cfg.GetLink(1, 258))
}

func TestParseSimCfg_Invalid(t *testing.T) {
	_, err := ParseSimCfg([]byte("nodes: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse network config")
}

func TestReadSimCfg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCfg), 0600))

	cfg, err := ReadSimCfg(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 3)

	_, err = ReadSimCfg(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyTunables(t *testing.T) {
	oldDead, oldGc := NeighbourDeadTicks, PoisonGcTicks
	t.Cleanup(func() {
		NeighbourDeadTicks, PoisonGcTicks = oldDead, oldGc
	})

	(&SimCfg{}).ApplyTunables()
	assert.Equal(t, oldDead, NeighbourDeadTicks)
	assert.Equal(t, oldGc, PoisonGcTicks)

	(&SimCfg{DeadTicks: 3, PoisonGcTicks: 5}).ApplyTunables()
	assert.Equal(t, uint64(3), NeighbourDeadTicks)
	assert.Equal(t, uint64(5), PoisonGcTicks)
}
