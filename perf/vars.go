package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	TickLatency             = metric.NewHistogram("1m1s")
	TicksPerSecond          = metric.NewCounter("10s1s")
	AdvertisementsPerSecond = metric.NewCounter("10s1s")
	PresencePerSecond       = metric.NewCounter("10s1s")
	SentBytesPerSecond      = metric.NewCounter("10s1s")
	DroppedPacketPerSecond  = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvr:TickLatency (µs)", TickLatency)
	expvar.Publish("dvr:Ticks/s", TicksPerSecond)
	expvar.Publish("dvr:Advertisements/s", AdvertisementsPerSecond)
	expvar.Publish("dvr:Presence/s", PresencePerSecond)
	expvar.Publish("dvr:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("dvr:DroppedPacket/s", DroppedPacketPerSecond)
}
