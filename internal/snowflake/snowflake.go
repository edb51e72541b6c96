package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the custom epoch (2026-01-01T00:00:00Z) in Unix milliseconds.
// Timestamps in generated IDs are offsets from this point.
const Epoch int64 = 1767225600000

const (
	workerIDBits = 10
	sequenceBits = 12

	maxWorkerID = (1 << workerIDBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Generator issues process-wide unique 64-bit IDs:
// 41 bits of millisecond timestamp, 10 bits of worker id, 12 bits of sequence.
// It is safe for concurrent use; issuance is serialized by an internal lock.
type Generator struct {
	mu            sync.Mutex
	workerID      int64
	sequence      int64
	lastTimestamp int64

	now func() int64
}

// New constructs a Generator for the given worker id.
func New(workerID int64) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id %d out of range [0,%d]", workerID, maxWorkerID)
	}
	return &Generator{
		workerID:      workerID,
		lastTimestamp: -1,
		now: func() int64 {
			return time.Now().UnixMilli()
		},
	}, nil
}

// Next returns the next unique ID. If the system clock moves backwards the
// generator keeps issuing against the last observed timestamp; if the
// per-millisecond sequence is exhausted it spins until the next millisecond.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now()
	if ts < g.lastTimestamp {
		ts = g.lastTimestamp
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for ts <= g.lastTimestamp {
				ts = g.now()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = ts

	return ((ts - Epoch) << timestampShift) |
		(g.workerID << workerIDShift) |
		g.sequence
}
