package adapter

import (
	"cmp"
	"slices"
	"time"

	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/util"
)

const (
	// MaxReassemblySize bounds the total length of one chunk series.
	MaxReassemblySize = 4 << 20
	// MaxPendingBytes bounds the buffers held by all incomplete series.
	MaxPendingBytes = 4 * MaxReassemblySize
)

// seriesKey identifies a chunk series: ids are only unique per sender.
type seriesKey struct {
	player  uint8
	wrapped uint16
}

// span is a byte range [start, end) of a series already written.
type span struct {
	start, end uint32
}

type series struct {
	buf       []byte
	numChunks uint32
	got       map[uint32]bool
	spans     []span // sorted by start, never overlapping
	covered   int
	updated   time.Time
}

// claim records [start, end) as written. It reports false when the range
// overlaps one already claimed.
func (s *series) claim(start, end uint32) bool {
	if start == end {
		return true
	}
	i, _ := slices.BinarySearchFunc(s.spans, start, func(sp span, off uint32) int {
		return cmp.Compare(sp.start, off)
	})
	if i > 0 && s.spans[i-1].end > start {
		return false
	}
	if i < len(s.spans) && s.spans[i].start < end {
		return false
	}
	s.spans = slices.Insert(s.spans, i, span{start, end})
	s.covered += int(end - start)
	return true
}

// Reassembler collects wrapper chunks and returns the encoded command once
// every chunk of its series has arrived. Chunks may come in any order and
// duplicates are ignored.
//
// It is goroutine-local and needs no locking.
type Reassembler struct {
	series  map[seriesKey]*series
	pending int // bytes held by incomplete series
	now     func() time.Time
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{
		series: make(map[seriesKey]*series),
		now:    time.Now,
	}
}

// Feed stores one chunk sent by player. It returns the full encoding of the
// wrapped command when w completes its series, and nil otherwise. A chunk
// that contradicts its series drops the whole series.
func (r *Reassembler) Feed(player uint8, w *netcmd.Wrapper) ([]byte, error) {
	if w.NumChunks == 0 || w.ChunkNumber >= w.NumChunks {
		return nil, netcmd.Malformed(-1, nil, "chunk %d of %d", w.ChunkNumber, w.NumChunks)
	}
	if w.TotalDataLength > MaxReassemblySize {
		return nil, netcmd.Malformed(-1, nil, "series of %d bytes exceeds limit", w.TotalDataLength)
	}
	if w.NumChunks > max(w.TotalDataLength, 1) {
		return nil, netcmd.Malformed(-1, nil, "%d chunks for %d bytes", w.NumChunks, w.TotalDataLength)
	}
	if uint64(w.DataOffset)+uint64(len(w.Data)) > uint64(w.TotalDataLength) {
		return nil, netcmd.Malformed(-1, nil, "chunk [%d,+%d) exceeds total %d",
			w.DataOffset, len(w.Data), w.TotalDataLength)
	}

	key := seriesKey{player: player, wrapped: w.WrappedCommandID}
	s, ok := r.series[key]
	if !ok {
		if r.pending+int(w.TotalDataLength) > MaxPendingBytes {
			return nil, netcmd.Malformed(-1, nil, "series %d would hold %d bytes with %d pending",
				w.WrappedCommandID, w.TotalDataLength, r.pending)
		}
		s = &series{
			buf:       make([]byte, w.TotalDataLength),
			numChunks: w.NumChunks,
			got:       make(map[uint32]bool),
		}
		r.series[key] = s
		r.pending += len(s.buf)
	} else if s.numChunks != w.NumChunks || uint32(len(s.buf)) != w.TotalDataLength {
		r.drop(key, s)
		return nil, netcmd.Malformed(-1, nil, "chunk of series %d disagrees on its shape", w.WrappedCommandID)
	}
	s.updated = r.now()

	if s.got[w.ChunkNumber] {
		util.LogDebug("[%d/%d] duplicate chunk %d, ignoring", player, w.WrappedCommandID, w.ChunkNumber)
		return nil, nil
	}
	if !s.claim(w.DataOffset, w.End()) {
		r.drop(key, s)
		return nil, netcmd.Malformed(-1, nil, "chunk %d of series %d overlaps [%d,%d)",
			w.ChunkNumber, w.WrappedCommandID, w.DataOffset, w.End())
	}
	s.got[w.ChunkNumber] = true
	copy(s.buf[w.DataOffset:], w.Data)

	if uint32(len(s.got)) < s.numChunks {
		return nil, nil
	}
	r.drop(key, s)
	if s.covered != len(s.buf) {
		return nil, netcmd.Malformed(-1, nil, "series %d covers %d of %d bytes",
			w.WrappedCommandID, s.covered, len(s.buf))
	}
	return s.buf, nil
}

func (r *Reassembler) drop(key seriesKey, s *series) {
	delete(r.series, key)
	r.pending -= len(s.buf)
}

// Pending returns the number of incomplete series.
func (r *Reassembler) Pending() int {
	return len(r.series)
}

// Expire drops series that have not seen a chunk for ttl and returns how
// many were dropped.
func (r *Reassembler) Expire(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	dropped := 0
	for key, s := range r.series {
		if s.updated.Before(cutoff) {
			r.drop(key, s)
			dropped++
			util.LogWarning("[%d/%d] dropping incomplete series (%d of %d chunks)",
				key.player, key.wrapped, len(s.got), s.numChunks)
		}
	}
	return dropped
}
