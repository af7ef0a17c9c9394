package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
	"github.com/google/go-cmp/cmp"
)

// ConfigureConstants restores the protocol tunables once the test finishes
func ConfigureConstants(t *testing.T, deadTicks, poisonGcTicks uint64) {
	oldDead, oldGc := state.NeighbourDeadTicks, state.PoisonGcTicks
	state.NeighbourDeadTicks = deadTicks
	state.PoisonGcTicks = poisonGcTicks
	t.Cleanup(func() {
		state.NeighbourDeadTicks = oldDead
		state.PoisonGcTicks = oldGc
	})
}

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

type RouterHarness struct {
	Costs   map[state.NodeId]state.Metric
	actions []HarnessEvent
}

func NewHarness(costs map[state.NodeId]state.Metric) *RouterHarness {
	return &RouterHarness{Costs: costs}
}

func (h *RouterHarness) LinkCost(neigh state.NodeId) state.Metric {
	cost, ok := h.Costs[neigh]
	if !ok {
		return state.INF
	}
	return cost
}

func (h *RouterHarness) SendAdvertisement(neigh state.NodeId, adv state.Advertisement) {
	h.actions = append(h.actions, MakeEvent("SEND_ADVERTISEMENT", neigh, adv))
}

func (h *RouterHarness) BroadcastPresence() {
	h.actions = append(h.actions, MakeEvent("BROADCAST_PRESENCE"))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

// Tick decodes the packets the same way DistanceVectorRouter does and runs one round.
func (h *RouterHarness) Tick(t *testing.T, rs *state.RouterState, pkts ...state.Packet) {
	t.Helper()
	adverts := make([]state.Pair[state.NodeId, state.Advertisement], 0)
	for _, pkt := range pkts {
		if pkt.IsPresence() {
			continue
		}
		adv, err := protocol.DecodeAdvertisement(pkt.Payload)
		if err != nil {
			t.Fatalf("harness received bad advertisement from %d: %v", pkt.Src, err)
		}
		adverts = append(adverts, state.Pair[state.NodeId, state.Advertisement]{V1: pkt.Src, V2: adv})
	}
	RunTick(rs, h, pkts, adverts)
}

type HarnessEvents []HarnessEvent

func (e HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range e {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns everything except logs, and clears the recorded actions
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// GetLogs returns the events that were logged, and clears the recorded actions
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		}
	}
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func Presence(src state.NodeId) state.Packet {
	return state.Packet{
		Src:     src,
		Dst:     state.Broadcast,
		Payload: make([]byte, 0),
	}
}

func AdvPacket(src, dst state.NodeId, adv state.Advertisement) state.Packet {
	return state.Packet{
		Src:     src,
		Dst:     dst,
		Payload: protocol.EncodeAdvertisement(adv),
	}
}

func R(nh state.NodeId, metric state.Metric) state.Route {
	return state.Route{Nh: nh, Metric: metric}
}
