package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
	"github.com/jellydator/ttlcache/v3"
)

// LinkLayer is provided by the environment the router runs in
type LinkLayer interface {
	OwnAddress() state.NodeId
	// LinkCost returns the cost of the direct link to neigh
	LinkCost(neigh state.NodeId) state.Metric
	// Transmit is best-effort, a destination of state.Broadcast reaches every directly connected node
	Transmit(pkt state.Packet)
}

// DistanceVectorRouter is a single routing node. It must only be ticked from one goroutine at a time.
type DistanceVectorRouter struct {
	*state.RouterState
	Link   LinkLayer
	Logger *slog.Logger
	// senders we recently warned about, so a broken neighbour doesn't flood the log every tick
	malformed *ttlcache.Cache[state.NodeId, struct{}]
}

func NewRouter(logger *slog.Logger) *DistanceVectorRouter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DistanceVectorRouter{
		Logger: logger,
		malformed: ttlcache.New[state.NodeId, struct{}](
			ttlcache.WithTTL[state.NodeId, struct{}](state.MalformedWarnTTL),
			ttlcache.WithDisableTouchOnHit[state.NodeId, struct{}](),
		),
	}
}

// Init resets the router so that it only knows about itself.
func (r *DistanceVectorRouter) Init(link LinkLayer) {
	r.Link = link
	r.RouterState = state.NewRouterState(link.OwnAddress())
	r.malformed.DeleteAll()
	r.Logger.Debug("init router", "id", r.Id)
}

// Tick runs one round of the protocol with the packets delivered since the previous tick.
func (r *DistanceVectorRouter) Tick(pkts []state.Packet) {
	start := time.Now()
	adverts := make([]state.Pair[state.NodeId, state.Advertisement], 0, len(pkts))
	for _, pkt := range pkts {
		if pkt.IsPresence() {
			continue
		}
		adv, err := protocol.DecodeAdvertisement(pkt.Payload)
		if err != nil {
			r.warnMalformed(pkt.Src, err)
			continue
		}
		adverts = append(adverts, state.Pair[state.NodeId, state.Advertisement]{V1: pkt.Src, V2: adv})
	}
	RunTick(r.RouterState, r, pkts, adverts)
	r.malformed.DeleteExpired()

	perf.TickLatency.Add(float64(time.Since(start).Microseconds()))
	perf.TicksPerSecond.Add(1)
}

// ForwardingTable returns a snapshot mapping each known destination to its next hop.
func (r *DistanceVectorRouter) ForwardingTable() map[state.NodeId]state.NodeId {
	ft := make(map[state.NodeId]state.NodeId, len(r.Routes))
	for dst, route := range r.Routes {
		ft[dst] = route.Nh
	}
	return ft
}

func (r *DistanceVectorRouter) warnMalformed(from state.NodeId, err error) {
	if r.malformed.Get(from) != nil {
		return
	}
	r.malformed.Set(from, struct{}{}, ttlcache.DefaultTTL)
	r.Log(MalformedAdvertisement, "ignoring undecodable advertisement", "from", from, "err", err)
}

func (r *DistanceVectorRouter) LinkCost(neigh state.NodeId) state.Metric {
	return r.Link.LinkCost(neigh)
}

func (r *DistanceVectorRouter) SendAdvertisement(neigh state.NodeId, adv state.Advertisement) {
	payload := protocol.EncodeAdvertisement(adv)
	r.Link.Transmit(state.Packet{
		Src:     r.Id,
		Dst:     neigh,
		Payload: payload,
	})
	perf.AdvertisementsPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(payload)))
}

func (r *DistanceVectorRouter) BroadcastPresence() {
	r.Link.Transmit(state.Packet{
		Src:     r.Id,
		Dst:     state.Broadcast,
		Payload: make([]byte, 0),
	})
	perf.PresencePerSecond.Add(1)
}

func (r *DistanceVectorRouter) Log(event RouterEvent, desc string, args ...any) {
	if event >= MalformedAdvertisement {
		r.Logger.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	r.Logger.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}
