//go:build integration

package integration

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/encodeous/dvr/sim"
	"github.com/encodeous/dvr/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) WaitTimeout(d time.Duration) bool {
	select {
	case <-s:
		return true
	case <-time.After(d):
		return false
	}
}

// ScenarioHarness runs a network config from testdata through the same entrypoint as the command line.
type ScenarioHarness struct {
	Cfg      *state.SimCfg
	Console  bytes.Buffer
	Interval time.Duration
}

func LoadScenario(t *testing.T, name string) *ScenarioHarness {
	t.Helper()
	cfg, err := state.ReadSimCfg(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	if err := state.SimConfigValidator(cfg); err != nil {
		t.Fatal(err)
	}
	oldDead, oldGc := state.NeighbourDeadTicks, state.PoisonGcTicks
	t.Cleanup(func() {
		state.NeighbourDeadTicks, state.PoisonGcTicks = oldDead, oldGc
	})
	return &ScenarioHarness{Cfg: cfg}
}

func (h *ScenarioHarness) Run(t *testing.T) *sim.VirtualNetwork {
	t.Helper()
	v, err := sim.Start(h.Cfg, sim.Options{
		LogLevel: slog.LevelDebug,
		LogPath:  filepath.Join(t.TempDir(), "sim.log"),
		Interval: h.Interval,
		Console:  &h.Console,
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}
