package engine

import (
	"context"

	"ymap/internal/command"
	"ymap/internal/response"
)

// RunIdle executes IDLE (RFC 2177): send the command, wait for the
// server's "+ idling" continuation, then block until stop fires (or ctx
// is cancelled), send "DONE", and wait for the tagged completion; if the
// tagged completion arrives first, it is returned at once. While
// idling, any untagged responses the server pushes (new EXISTS/EXPUNGE,
// for instance) continue to flow through Engine.Next exactly as they
// would outside IDLE — the read loop doesn't special-case them.
//
// writeMu is held while the "ym1 IDLE" line itself goes out, so it can't
// interleave with another command's bytes; the wait for the "+ idling"
// continuation that follows doesn't write anything, so it happens outside
// the lock. Ending the IDLE goes through endIdleIfActive rather than
// writing DONE directly: a concurrent Execute may have already closed it
// out on this call's behalf (see engine.go).
func (e *Engine) RunIdle(ctx context.Context, stop <-chan struct{}) (response.Record, error) {
	if e.health.get() == HealthBroken {
		return response.Record{}, ErrEngineBroken
	}

	tag := e.nextTag()
	ch := make(chan response.Record, 1)
	e.mu.Lock()
	e.pending[tag] = &pendingEntry{ch: ch}
	e.mu.Unlock()

	e.writeMu.Lock()
	e.markSent(tag)
	_, err := command.Encode(e.writer(), tag, command.CmdIdle(), false, nil)
	e.writeMu.Unlock()
	if err != nil {
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, err
	}

	select {
	case <-e.contCh:
	case rec := <-ch:
		return rec, nil
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, ctx.Err()
	}

	e.inIdle.Store(true)

	select {
	case <-stop:
	case <-ctx.Done():
	case rec := <-ch:
		// The IDLE already completed: a concurrent command sent DONE on
		// this call's behalf, or the server ended it.
		return rec, nil
	}

	if err := e.endIdleIfActive(); err != nil {
		return response.Record{}, err
	}

	select {
	case rec := <-ch:
		return rec, nil
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, ctx.Err()
	}
}

// InIdle reports whether the engine currently has an IDLE command
// outstanding.
func (e *Engine) InIdle() bool { return e.inIdle.Load() }
