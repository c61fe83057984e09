// Package engine implements the single-threaded cooperative IMAP engine
// loop: the piece that owns one Transport, allocates tags, and correlates
// untagged/tagged responses with the commands that produced them. It is
// the Go counterpart of ymaplib.IMAPParser's _WorkerThread plus its
// cmd_*/_parse_line machinery, redesigned to use explicit returned errors
// instead of raised exceptions for control flow.
package engine

import "sync/atomic"

// Health is the engine's tri-state liveness: a freshly constructed engine
// is Unknown until its worker starts successfully; a protocol violation,
// timeout or disconnect poisons it to Broken, from which it never
// recovers.
type Health int32

const (
	HealthUnknown Health = iota
	HealthHealthy
	HealthBroken
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthBroken:
		return "broken"
	default:
		return "unknown"
	}
}

type healthState struct {
	v atomic.Int32
}

func (s *healthState) get() Health { return Health(s.v.Load()) }

func (s *healthState) setHealthy() { s.v.CompareAndSwap(int32(HealthUnknown), int32(HealthHealthy)) }

// poison is one-way: once broken, always broken.
func (s *healthState) poison() { s.v.Store(int32(HealthBroken)) }
