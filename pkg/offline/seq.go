package offline

import (
	"sync"
	"time"
)

// seqClock issues strictly increasing timestamps packed as int64:
//   - high 48 bits: physical time in milliseconds since the Unix epoch
//   - low 16 bits: logical counter
//
// Queue entries and temp ids are ordered by these values, so FIFO replay
// order holds even when the wall clock stalls or steps backwards.
type seqClock struct {
	mu     sync.Mutex
	latest int64
}

const seqLogicalMask = 0xFFFF

func newSeqClock() *seqClock {
	return &seqClock{}
}

// Now returns the next timestamp, strictly greater than any previous one.
func (c *seqClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := time.Now().UnixMilli()

	oldPhys := c.latest >> 16
	oldLogical := c.latest & seqLogicalMask

	var newPhys, newLogical int64
	if phys > oldPhys {
		newPhys = phys
		newLogical = 0
	} else {
		newPhys = oldPhys
		newLogical = oldLogical + 1
	}

	// Counter overflow borrows one physical millisecond.
	if newLogical > seqLogicalMask {
		newPhys++
		newLogical = 0
	}

	c.latest = (newPhys << 16) | newLogical
	return c.latest
}
