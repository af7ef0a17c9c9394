package state

import "time"

const (
	INF = ^Metric(0)
	// INFM is the largest metric that is not a retraction.
	INFM = INF - 1

	// Broadcast addresses every directly connected neighbour.
	Broadcast = NodeId(0)
)

var (
	// NeighbourDeadTicks is the number of consecutive silent ticks after which a neighbour is dropped.
	NeighbourDeadTicks = uint64(1)
	// PoisonGcTicks removes routes that stayed at INF for this many ticks. 0 keeps them forever.
	PoisonGcTicks = uint64(0)
	// MalformedWarnTTL suppresses repeated warnings about undecodable advertisements from the same sender.
	MalformedWarnTTL = time.Second * 10

	// DefaultTickInterval is used by the real-time runner.
	DefaultTickInterval = time.Millisecond * 500
	// TraceHopLimit bounds dataplane traces.
	TraceHopLimit = 64
	// TraceBufferSize is the go-broadcast input buffer size.
	TraceBufferSize = 1024
	// StableTicks is how many unchanged ticks count as converged when no tick count is given.
	StableTicks = uint64(3)
	MaxSimTicks = uint64(10000)
)

// debug flags, set from the command line
var (
	DBG_debug             = false
	DBG_log_route_changes = false
	DBG_log_route_table   = false
)
