package engine

import (
	"context"
	"strings"

	"ymap/internal/command"
	"ymap/internal/response"
	"ymap/internal/sasl"
)

// mechanism is the subset of *sasl.Mechanism RunAuthenticate needs,
// expressed as an interface so engine tests can drive the continuation
// chat loop with a fake mechanism instead of a real SASL exchange.
type mechanism interface {
	Name() string
	Start() ([]byte, error)
	Next(challenge []byte) ([]byte, error)
}

// RunAuthenticate drives the AUTHENTICATE continuation chat (RFC 3501
// §6.2.2): send the mechanism name (and its initial response, if any),
// then alternate between decoding a base64 server challenge and sending
// the mechanism's base64 response, until a tagged completion arrives.
// Mirrors ymaplib.authenticators.Authenticator.chat, redesigned to return
// errors rather than raise.
//
// writeMu is held across the entire chat — the initial AUTHENTICATE line
// and every challenge reply or cancellation — so the exchange can't be
// interleaved with another goroutine's command. An active IDLE is ended
// first, the same as Execute, so AUTHENTICATE never races IDLE's DONE.
func (e *Engine) RunAuthenticate(ctx context.Context, mech mechanism) (response.Record, error) {
	if e.health.get() == HealthBroken {
		return response.Record{}, ErrEngineBroken
	}
	if err := e.endIdleIfActive(); err != nil {
		return response.Record{}, err
	}

	tag := e.nextTag()
	ch := make(chan response.Record, 1)
	e.mu.Lock()
	e.pending[tag] = &pendingEntry{ch: ch}
	e.mu.Unlock()

	initial, err := mech.Start()
	if err != nil {
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, err
	}

	var ir *string
	if initial != nil {
		s := sasl.EncodeChallenge(initial)
		ir = &s
	}
	cmd := command.CmdAuthenticate(command.Mechanism(mech.Name()), ir)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.markSent(tag)
	_, err = command.Encode(e.writer(), tag, cmd, false, nil)
	if err != nil {
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, err
	}

	for {
		select {
		case payload := <-e.contCh:
			challenge, err := sasl.DecodeChallenge(strings.TrimSpace(string(payload)))
			if err != nil {
				e.health.poison()
				return response.Record{}, err
			}
			resp, err := mech.Next(challenge)
			var werr error
			if err != nil {
				// "*" cancels the exchange per RFC 3501 §6.2.2.
				_, werr = e.tr.Write([]byte("*\r\n"))
			} else {
				line := sasl.EncodeChallenge(resp) + "\r\n"
				_, werr = e.tr.Write([]byte(line))
			}
			if werr != nil {
				e.health.poison()
				return response.Record{}, werr
			}
		case rec := <-ch:
			return rec, nil
		case <-ctx.Done():
			e.mu.Lock()
			delete(e.pending, tag)
			e.mu.Unlock()
			e.health.poison()
			return response.Record{}, ctx.Err()
		}
	}
}
