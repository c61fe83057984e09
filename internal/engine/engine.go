package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ymap/internal/command"
	"ymap/internal/response"
	"ymap/internal/transport"
	"ymap/internal/wire"
)

// Logger is the engine's minimal tracing collaborator, gated by
// Options.Verbosity the way ymaplib.IMAPParser gates its self._log calls
// behind self.debug.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Options configures a new Engine.
type Options struct {
	// Verbosity gates Logger.Debugf calls; 0 disables tracing entirely.
	Verbosity int
	// CapabilityMask names capabilities the engine must never report as
	// effective, regardless of what the server advertises.
	CapabilityMask []string
	// CommandTimeout bounds how long Execute waits for a synchronizing
	// literal's continuation; when it expires the engine poisons itself.
	// The wait for a command's tagged completion is not bounded by it,
	// only by the caller's ctx. Zero means no timeout.
	CommandTimeout time.Duration
	// Logger receives protocol trace lines. Defaults to a no-op logger.
	Logger Logger
	// PendingBacklog bounds the untagged-response queue depth Next
	// drains from; callers that fall behind will block the engine loop
	// once it fills. Defaults to 64.
	PendingBacklog int
}

// Engine is the single-threaded cooperative IMAP4rev1 state machine: one
// dedicated goroutine owns the Transport for reading, while writes from
// any number of caller goroutines (Execute, RunIdle, RunAuthenticate) are
// serialized behind writeMu so the transport only ever sees one command's
// bytes at a time, in the order each command acquired the lock — the
// same single-writer guarantee the original's single-threaded worker got
// for free.
type Engine struct {
	tr     transport.Transport
	opts   Options
	logger Logger

	tagNum atomic.Uint64
	health healthState

	mu      sync.Mutex
	pending map[string]*pendingEntry

	contCh chan []byte

	// writeMu is held across an entire command dispatch — the encode,
	// any synchronizing-literal continuation wait, and (for
	// AUTHENTICATE) the whole challenge/response chat — not just
	// individual Write calls, so two commands' bytes never interleave.
	writeMu sync.Mutex

	// idleMu guards the end-of-IDLE handshake: both RunIdle (waking on
	// stop/ctx) and a newly dispatched Execute/RunAuthenticate race to
	// send DONE on an active IDLE, and only one of them may.
	idleMu sync.Mutex

	capsPtr     atomic.Pointer[map[string]struct{}]
	capMask     map[string]struct{}
	literalPlus atomic.Bool
	inIdle      atomic.Bool

	outgoing chan response.Record

	g      *errgroup.Group
	cancel context.CancelFunc
}

// pendingEntry tracks one outstanding tagged command. sent is false until
// its bytes have actually reached the transport, so a StopWorker that
// races a blocked writer can tell a command that was only ever queued
// behind writeMu apart from one the peer may have already seen.
type pendingEntry struct {
	ch   chan response.Record
	sent bool
}

// New constructs an Engine over tr. The engine does not read or write
// anything until StartWorker is called.
func New(tr transport.Transport, opts Options) *Engine {
	if opts.Logger == nil || opts.Verbosity <= 0 {
		opts.Logger = nopLogger{}
	}
	if opts.PendingBacklog <= 0 {
		opts.PendingBacklog = 64
	}
	mask := make(map[string]struct{}, len(opts.CapabilityMask))
	for _, c := range opts.CapabilityMask {
		mask[strings.ToUpper(c)] = struct{}{}
	}
	e := &Engine{
		tr:       tr,
		opts:     opts,
		logger:   opts.Logger,
		pending:  make(map[string]*pendingEntry),
		contCh:   make(chan []byte, 1),
		capMask:  mask,
		outgoing: make(chan response.Record, opts.PendingBacklog),
	}
	empty := map[string]struct{}{}
	e.capsPtr.Store(&empty)
	return e
}

// Health reports the engine's current tri-state liveness.
func (e *Engine) Health() Health { return e.health.get() }

// Capabilities returns a snapshot of the currently effective capability
// set (post-mask). Safe to call concurrently with the running worker.
func (e *Engine) Capabilities() map[string]struct{} {
	return *e.capsPtr.Load()
}

// Next blocks for the next untagged/unilateral response the worker has
// queued (EXISTS, EXPUNGE, FETCH push during IDLE, and so on), or returns
// ctx.Err() if ctx is done first.
func (e *Engine) Next(ctx context.Context) (response.Record, error) {
	select {
	case rec := <-e.outgoing:
		return rec, nil
	case <-ctx.Done():
		return response.Record{}, ctx.Err()
	}
}

// StartWorker launches the engine's read loop on a dedicated goroutine
// bound to ctx, using a one-member errgroup.Group as the worker's join
// handle: StopWorker's Wait() surfaces the loop's terminal error without
// a second bespoke channel.
func (e *Engine) StartWorker(ctx context.Context) {
	gctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(gctx)
	e.cancel = cancel
	e.g = g
	e.health.setHealthy()
	g.Go(func() error {
		return e.loop(gctx)
	})
}

// StopWorker cancels the read loop, waits for it to exit, and completes
// every command still awaiting a tagged completion with a Record that
// carries only its tag and the DisconnectedError's message as Text (its
// Status is empty); the waiting call returns that Record with a nil
// error. The returned DisconnectedError's Unsent names the tags whose
// bytes never reached the transport, so a caller can decide whether to
// retry them on a new connection. StopWorker returns nil when the loop
// ended because of the cancellation and no pending command was unsent.
func (e *Engine) StopWorker() error {
	if e.cancel != nil {
		e.cancel()
	}
	var werr error
	if e.g != nil {
		werr = e.g.Wait()
	}
	discErr := &DisconnectedError{Cause: werr}
	e.failAllPending(discErr)
	if errors.Is(werr, context.Canceled) {
		if len(discErr.Unsent) > 0 {
			return discErr
		}
		return nil
	}
	return discErr
}

func (e *Engine) failAllPending(err *DisconnectedError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for tag, pe := range e.pending {
		if !pe.sent {
			err.Unsent = append(err.Unsent, tag)
		}
		pe.ch <- response.Record{Tag: tag, Text: err.Error()}
		close(pe.ch)
		delete(e.pending, tag)
	}
}

func (e *Engine) nextTag() string {
	n := e.tagNum.Add(1)
	return wire.TagPrefix + strconv.FormatUint(n, 10)
}

func (e *Engine) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Poll briefly so a cancelled ctx is noticed while the server is quiet.
		ready, err := e.tr.WaitReadable(50 * time.Millisecond)
		if err != nil {
			e.health.poison()
			return &DisconnectedError{Cause: err}
		}
		if !ready {
			continue
		}
		line, err := e.tr.ReadLine()
		if err != nil {
			e.health.poison()
			return &DisconnectedError{Cause: err}
		}
		e.logger.Debugf("recv: %s", line)

		if response.IsContinuation(line) {
			payload := line[1:]
			if len(payload) > 0 && payload[0] == ' ' {
				payload = payload[1:]
			}
			select {
			case e.contCh <- payload:
			default:
			}
			continue
		}

		rec, err := response.Parse(line, e.tr)
		if err != nil {
			var unk *response.UnknownResponseError
			if errors.As(err, &unk) {
				e.logger.Debugf("unknown response: %v", err)
				continue
			}
			e.logger.Debugf("parse error, poisoning engine: %v", err)
			e.health.poison()
			return err
		}

		if rec.Kind == response.KindCapability {
			if caps, ok := rec.Data.([]string); ok {
				e.applyCapabilities(caps)
			}
		}
		if rec.Code.Name == "CAPABILITY" {
			if caps, ok := rec.Code.Payload.([]string); ok {
				e.applyCapabilities(caps)
			}
		}

		if rec.Tag != "" {
			e.completeTag(rec.Tag, rec)
			continue
		}

		select {
		case e.outgoing <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) completeTag(tag string, rec response.Record) {
	e.mu.Lock()
	pe, ok := e.pending[tag]
	if ok {
		delete(e.pending, tag)
	}
	e.mu.Unlock()
	if ok {
		pe.ch <- rec
		close(pe.ch)
		return
	}
	// A tagged response with no matching pending command is itself a
	// protocol anomaly the caller should be able to observe.
	select {
	case e.outgoing <- rec:
	default:
	}
}

// applyCapabilities installs a new effective capability snapshot,
// enforcing that it never intersects the configured mask and tracking
// LITERAL+ support for the command encoder.
func (e *Engine) applyCapabilities(caps []string) {
	set := make(map[string]struct{}, len(caps))
	hasLiteralPlus := false
	for _, c := range caps {
		u := strings.ToUpper(c)
		if _, masked := e.capMask[u]; masked {
			continue
		}
		set[u] = struct{}{}
		if u == "LITERAL+" {
			hasLiteralPlus = true
		}
	}
	e.capsPtr.Store(&set)
	e.literalPlus.Store(hasLiteralPlus)
}

// SeedCapabilities applies a capability list the caller observed outside
// the read loop — the greeting's own "[CAPABILITY ...]" code, most
// commonly, which is read before the worker starts and so never passes
// through loop's own CAPABILITY handling.
func (e *Engine) SeedCapabilities(caps []string) { e.applyCapabilities(caps) }

func (e *Engine) writer() *transportWriter { return &transportWriter{t: e.tr} }

type transportWriter struct{ t transport.Transport }

func (w *transportWriter) Write(p []byte) (int, error) { return w.t.Write(p) }

// markSent flips a pending command's sent bit once its bytes have started
// going out under writeMu, so a disconnect racing the write can tell a
// command that reached the wire apart from one still queued behind it.
func (e *Engine) markSent(tag string) {
	e.mu.Lock()
	if pe, ok := e.pending[tag]; ok {
		pe.sent = true
	}
	e.mu.Unlock()
}

// endIdleIfActive sends DONE on behalf of an outstanding IDLE before any
// other command may write to the transport, per the rule that a newly
// dispatched command must first close out an active IDLE rather than let
// its bytes land while the server still believes it's idling. idleMu
// makes this race-safe against RunIdle's own wake-triggered DONE: whichever
// of the two observes inIdle true first performs the write and flips it
// false, the other is a no-op.
func (e *Engine) endIdleIfActive() error {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	if !e.inIdle.Load() {
		return nil
	}
	e.writeMu.Lock()
	_, err := e.tr.Write([]byte("DONE\r\n"))
	e.writeMu.Unlock()
	e.inIdle.Store(false)
	if err != nil {
		e.health.poison()
	}
	return err
}

// Execute sends cmd under a freshly allocated tag and blocks for its
// tagged completion, handling a synchronizing literal's continuation wait
// inline. It returns ErrEngineBroken immediately if the engine has
// already been poisoned. writeMu is held for the whole encode — including
// any continuation wait a literal forces — so a second caller's Execute,
// RunIdle or RunAuthenticate never interleaves its bytes with this one's.
func (e *Engine) Execute(ctx context.Context, cmd command.Command) (response.Record, error) {
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

	var abortedRec response.Record
	haveAbortedRec := false

	waiter := func() error {
		timeout := e.opts.CommandTimeout
		var timeoutCh <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			timeoutCh = timer.C
		}
		select {
		case <-e.contCh:
			return nil
		case rec := <-ch:
			abortedRec = rec
			haveAbortedRec = true
			return command.ErrAborted
		case <-timeoutCh:
			e.health.poison()
			return &TimeoutError{Op: "synchronizing literal for " + cmd.Name()}
		case <-ctx.Done():
			e.health.poison()
			return ctx.Err()
		}
	}

	e.writeMu.Lock()
	e.markSent(tag)
	aborted, err := command.Encode(e.writer(), tag, cmd, e.literalPlus.Load(), waiter)
	e.writeMu.Unlock()
	if err != nil {
		e.mu.Lock()
		delete(e.pending, tag)
		e.mu.Unlock()
		return response.Record{}, err
	}
	if aborted {
		if haveAbortedRec {
			return abortedRec, nil
		}
		return response.Record{}, command.ErrAborted
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
