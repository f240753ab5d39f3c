package client

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator supplies ids for requests built without one. Implementations
// must be safe for concurrent use.
type IDGenerator interface {
	NextID() any
}

// IDGeneratorFunc adapts a function to an IDGenerator.
type IDGeneratorFunc func() any

func (f IDGeneratorFunc) NextID() any { return f() }

// Counter yields 1, 2, 3... as int64.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) NextID() any { return c.n.Add(1) }

// SecureRandom yields non-negative int64 ids drawn from crypto/rand. Values
// stay below 2^53 so they survive float64 JSON decoders.
type SecureRandom struct{}

func (SecureRandom) NextID() any {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("jsonrpc client: crypto/rand: " + err.Error())
	}
	return int64(binary.BigEndian.Uint64(b[:]) & (1<<53 - 1))
}

// UUID yields random version 4 UUID strings.
type UUID struct{}

func (UUID) NextID() any { return uuid.NewString() }

// NewIDGenerator returns the generator named by kind: "counter", "random" or
// "uuid". Unknown kinds fall back to a counter.
func NewIDGenerator(kind string) IDGenerator {
	switch kind {
	case "random":
		return SecureRandom{}
	case "uuid":
		return UUID{}
	}
	return new(Counter)
}
