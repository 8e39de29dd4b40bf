package snowflake

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Epoch 2024-01-01T00:00:00Z in milliseconds
	Epoch int64 = 1704067200000

	// NodeBits holds the number of bits to use for Node
	NodeBits uint8 = 10

	// StepBits holds the number of bits to use for Step
	StepBits uint8 = 12

	nodeMask  = -1 ^ (-1 << NodeBits)
	stepMask  = -1 ^ (-1 << StepBits)
	timeShift = NodeBits + StepBits
	nodeShift = StepBits

	// RequestNoPrefix marks human-facing request numbers
	RequestNoPrefix = "RQ"
)

// ErrInvalidNodeID node ID outside [0, 1023]
var ErrInvalidNodeID = errors.New("invalid node ID")

// IDGenerator ID generator using snowflake algorithm
type IDGenerator struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	step      int64
	now       func() int64
}

// NewIDGenerator creates a new ID generator
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	if nodeID < 0 || nodeID > nodeMask {
		return nil, ErrInvalidNodeID
	}

	return &IDGenerator{
		nodeID: nodeID,
		now:    func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID generates a new ID
func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// clock moved backwards: keep issuing from the last timestamp
	if now < g.timestamp {
		now = g.timestamp
	}

	if g.timestamp == now {
		g.step = (g.step + 1) & stepMask

		if g.step == 0 {
			for now <= g.timestamp {
				now = g.now()
			}
		}
	} else {
		g.step = 0
	}

	g.timestamp = now

	return ((now - Epoch) << timeShift) |
		(g.nodeID << nodeShift) |
		g.step
}

// NextRequestNo returns a sortable request number such as "RQ1A2B3C4D5E"
func (g *IDGenerator) NextRequestNo() string {
	return FormatRequestNo(g.NextID())
}

// FormatRequestNo renders id as a request number
func FormatRequestNo(id int64) string {
	return RequestNoPrefix + strings.ToUpper(strconv.FormatInt(id, 36))
}

// ParseRequestNo recovers the ID behind a request number
func ParseRequestNo(no string) (int64, error) {
	if !strings.HasPrefix(no, RequestNoPrefix) {
		return 0, errors.New("invalid request number")
	}
	return strconv.ParseInt(strings.ToLower(strings.TrimPrefix(no, RequestNoPrefix)), 36, 64)
}

// ParseID parses an ID to extract timestamp, node ID and step
func ParseID(id int64) (timestamp int64, nodeID int64, step int64) {
	step = id & stepMask
	nodeID = (id >> nodeShift) & nodeMask
	timestamp = (id >> timeShift) + Epoch
	return
}
