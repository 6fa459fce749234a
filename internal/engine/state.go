package engine

import "sync/atomic"

// atomicState is the engine's {Idle → Running → Stopping → Idle}
// state machine, backed by a single atomic int32.
type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) load() engineState {
	return engineState(s.v.Load())
}

func (s *atomicState) store(v engineState) {
	s.v.Store(int32(v))
}

// transition performs a CAS from `from` to `to`, reporting success.
func (s *atomicState) transition(from, to engineState) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
