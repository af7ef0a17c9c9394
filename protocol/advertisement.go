package protocol

// Advertisements use the protobuf wire format:
//
//	message Advertisement { repeated Entry entries = 1; }
//	message Entry { uint32 dest = 1; uint32 nh = 2; uint32 metric = 3; }
//
// A zero-length payload is never produced: every advertisement carries at least the sender's own route.

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/encodeous/dvr/state"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	advEntries protowire.Number = 1

	entryDest   protowire.Number = 1
	entryNh     protowire.Number = 2
	entryMetric protowire.Number = 3
)

var ErrEmptyAdvertisement = errors.New("advertisement has no entries")

// EncodeAdvertisement serializes the advertisement with entries sorted by destination.
func EncodeAdvertisement(adv state.Advertisement) []byte {
	buf := make([]byte, 0, len(adv)*12)
	entry := make([]byte, 0, 16)
	for _, dst := range slices.Sorted(maps.Keys(adv)) {
		route := adv[dst]
		entry = entry[:0]
		entry = protowire.AppendTag(entry, entryDest, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(dst))
		entry = protowire.AppendTag(entry, entryNh, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(route.Nh))
		entry = protowire.AppendTag(entry, entryMetric, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(route.Metric))

		buf = protowire.AppendTag(buf, advEntries, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
	}
	return buf
}

// DecodeAdvertisement parses a payload produced by EncodeAdvertisement. Unknown fields are skipped.
func DecodeAdvertisement(data []byte) (state.Advertisement, error) {
	adv := make(state.Advertisement)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad advertisement tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num != advEntries || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bad advertisement field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		raw, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("bad advertisement entry: %w", protowire.ParseError(n))
		}
		data = data[n:]
		dst, route, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		adv[dst] = route
	}
	if len(adv) == 0 {
		return nil, ErrEmptyAdvertisement
	}
	return adv, nil
}

func decodeEntry(data []byte) (state.NodeId, state.Route, error) {
	var dst, nh, metric uint64
	var seen int
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, state.Route{}, fmt.Errorf("bad entry tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.VarintType || num < entryDest || num > entryMetric {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return 0, state.Route{}, fmt.Errorf("bad entry field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, state.Route{}, fmt.Errorf("bad entry field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
		if v > math.MaxUint32 {
			return 0, state.Route{}, fmt.Errorf("entry field %d value %d overflows uint32", num, v)
		}
		switch num {
		case entryDest:
			dst = v
		case entryNh:
			nh = v
		case entryMetric:
			metric = v
		}
		seen |= 1 << num
	}
	if seen&(1<<entryDest) == 0 {
		return 0, state.Route{}, errors.New("entry is missing a destination")
	}
	return state.NodeId(dst), state.Route{
		Nh:     state.NodeId(nh),
		Metric: state.Metric(metric),
	}, nil
}
