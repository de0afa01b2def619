package responder

import (
	"fmt"
	"sync"
	"time"
)

const (
	maxWorkerID     = -1 ^ (-1 << 3)
	maxDatacenterID = -1 ^ (-1 << 5)
	workerIDShift   = 12
	datacenterShift = 12 + 3
	timestampShift  = 12 + 3 + 5
	sequenceMask    = -1 ^ (-1 << 12)

	// startEpoch is the fixed snowflake epoch (ms since Unix epoch),
	// carried over unchanged so ids remain comparable across versions.
	startEpoch = 1064980800000
)

// Snowflake generates strictly increasing, process-unique decimal id
// strings: a 41-bit millisecond timestamp since startEpoch, a 5-bit
// datacenter id, a 3-bit worker id, and a 12-bit sequence.
type Snowflake struct {
	mu            sync.Mutex
	datacenterID  int64
	workerID      int64
	sequence      int64
	lastTimestamp int64
}

// NewSnowflake constructs a generator for the given datacenter/worker
// pair. It returns an error if either id is out of its bit range.
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("snowflake: worker id %d out of range [0,%d]", workerID, maxWorkerID)
	}
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("snowflake: datacenter id %d out of range [0,%d]", datacenterID, maxDatacenterID)
	}
	return &Snowflake{
		datacenterID:  datacenterID,
		workerID:      workerID,
		lastTimestamp: -1,
	}, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// NextID returns the next id as an int64. It blocks briefly if the
// sequence within one millisecond is exhausted, waiting for the clock to
// advance.
func (s *Snowflake) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := nowMillis()
	if ts < s.lastTimestamp {
		return 0, fmt.Errorf("snowflake: clock moved backwards, refusing to generate id for %d ms", s.lastTimestamp-ts)
	}
	if ts == s.lastTimestamp {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			ts = tilNextMillis(s.lastTimestamp)
		}
	} else {
		s.sequence = 0
	}
	s.lastTimestamp = ts

	id := ((ts - startEpoch) << timestampShift) |
		(s.datacenterID << datacenterShift) |
		(s.workerID << workerIDShift) |
		s.sequence
	return id, nil
}

func tilNextMillis(last int64) int64 {
	ts := nowMillis()
	for ts <= last {
		ts = nowMillis()
	}
	return ts
}

// NextEchoID returns the next id as the decimal string form used for
// echo ids.
func (s *Snowflake) NextEchoID() (string, error) {
	id, err := s.NextID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", id), nil
}
