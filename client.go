// Package ymap is a client-side IMAP4rev1 protocol engine: it owns a
// Transport, encodes commands, parses responses, and correlates the two
// by tag, but never opens a socket or manages mailbox/message state
// itself — that stays the caller's concern.
package ymap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"ymap/internal/command"
	"ymap/internal/engine"
	"ymap/internal/response"
	"ymap/internal/sasl"
	"ymap/internal/transport"
)

// Re-exported so callers never need to import the internal packages
// directly: the response data model and the error types a caller needs
// to type-switch on.
type (
	Record      = response.Record
	Envelope    = response.Envelope
	Address     = response.Address
	ThreadNode  = response.ThreadNode
	AString     = response.AString
	MailboxItem = response.MailboxListItem
	StatusAttrs = response.StatusAttrs
	FetchData   = response.FetchData
	Health      = engine.Health

	TimeoutError        = engine.TimeoutError
	DisconnectedError   = engine.DisconnectedError
	ParseError          = response.ParseError
	UnknownResponseErr  = response.UnknownResponseError
	InvalidResponseErr  = response.InvalidResponseError
	ErrCapabilityMasked = engine.ErrCapabilityMasked
)

const (
	HealthUnknown = engine.HealthUnknown
	HealthHealthy = engine.HealthHealthy
	HealthBroken  = engine.HealthBroken
)

var NIL = response.NILAString

var ErrEngineBroken = engine.ErrEngineBroken

// GreetingKind identifies which of the three greetings (RFC 3501 §7.1.5)
// the server sent.
type GreetingKind int

const (
	GreetingOK GreetingKind = iota
	GreetingPreAuth
	GreetingBye
)

// Client is the engine plus the connection bookkeeping (Dial, greeting,
// high-level command helpers) that make up ymap's public surface. The
// embedded *engine.Engine carries Execute/Next/StartWorker/StopWorker and
// the tag/capability/health state machine; Client adds the ergonomic
// per-command wrappers.
type Client struct {
	*engine.Engine
	Greeting GreetingKind
	tr       transport.Transport
}

// Dial opens a plain TCP connection to addr, reads the server's greeting,
// and starts the engine worker.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ymap: dial %s: %w", addr, err)
	}
	return newClient(ctx, transport.NewConn(conn), opts)
}

// DialTLS opens a TLS connection to addr and proceeds as Dial.
func DialTLS(ctx context.Context, addr string, cfg *tls.Config, opts Options) (*Client, error) {
	d := tls.Dialer{Config: cfg}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ymap: dial tls %s: %w", addr, err)
	}
	return newClient(ctx, transport.NewConn(conn), opts)
}

// NewClient wraps an already-established Transport (a child process pipe,
// a pre-negotiated socket, a test fixture) instead of dialing one.
func NewClient(ctx context.Context, tr transport.Transport, opts Options) (*Client, error) {
	return newClient(ctx, tr, opts)
}

func newClient(ctx context.Context, tr transport.Transport, opts Options) (*Client, error) {
	greetingLine, err := tr.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("ymap: reading greeting: %w", err)
	}
	rec, err := response.Parse(greetingLine, tr)
	if err != nil {
		return nil, fmt.Errorf("ymap: parsing greeting: %w", err)
	}

	eng := engine.New(tr, engine.Options{
		Verbosity:      opts.Verbosity,
		CapabilityMask: opts.CapabilityMask,
		CommandTimeout: opts.CommandTimeout,
		Logger:         opts.Logger,
	})
	eng.StartWorker(ctx)

	c := &Client{Engine: eng, tr: tr}
	switch rec.Status {
	case "OK":
		c.Greeting = GreetingOK
	case "PREAUTH":
		c.Greeting = GreetingPreAuth
	case "BYE":
		c.Greeting = GreetingBye
		return c, fmt.Errorf("ymap: server greeted with BYE: %s", rec.Text)
	default:
		return nil, fmt.Errorf("ymap: unexpected greeting status %q", rec.Status)
	}
	if caps, ok := rec.Code.Payload.([]string); ok && rec.Code.Name == "CAPABILITY" {
		c.SeedCapabilities(caps)
	}
	return c, nil
}

// Close terminates the engine worker and the underlying transport.
func (c *Client) Close() error {
	err := c.StopWorker()
	if cerr := c.tr.Close(); err == nil {
		err = cerr
	}
	return err
}

// --- ergonomic command wrappers -------------------------------------------

func (c *Client) Capability(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdCapability())
}

func (c *Client) Noop(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdNoop())
}

func (c *Client) Logout(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdLogout())
}

func (c *Client) Login(ctx context.Context, user, pass string) (Record, error) {
	return c.Execute(ctx, command.CmdLogin(user, pass))
}

func (c *Client) StartTLS(ctx context.Context, cfg *tls.Config) (Record, error) {
	return c.RunStartTLS(ctx, cfg)
}

func (c *Client) AuthenticatePlain(ctx context.Context, identity, user, pass string) (Record, error) {
	return c.RunAuthenticate(ctx, sasl.Plain(identity, user, pass))
}

func (c *Client) AuthenticateLogin(ctx context.Context, user, pass string) (Record, error) {
	return c.RunAuthenticate(ctx, sasl.Login(user, pass))
}

func (c *Client) AuthenticateOAuthBearer(ctx context.Context, user, token, host string, port int) (Record, error) {
	mech, err := sasl.OAuthBearer(user, token, host, port)
	if err != nil {
		return Record{}, err
	}
	return c.RunAuthenticate(ctx, mech)
}

func (c *Client) Select(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdSelect(mailbox))
}

func (c *Client) Examine(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdExamine(mailbox))
}

// CloseMailbox sends CLOSE (named to avoid colliding with Client.Close,
// which tears down the engine worker rather than the selected mailbox).
func (c *Client) CloseMailbox(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdClose())
}

func (c *Client) Unselect(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdUnselect())
}

func (c *Client) Check(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdCheck())
}

func (c *Client) Expunge(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdExpunge())
}

func (c *Client) Create(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdCreate(mailbox))
}

func (c *Client) Delete(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdDelete(mailbox))
}

func (c *Client) Rename(ctx context.Context, from, to string) (Record, error) {
	return c.Execute(ctx, command.CmdRename(from, to))
}

func (c *Client) Subscribe(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdSubscribe(mailbox))
}

func (c *Client) Unsubscribe(ctx context.Context, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdUnsubscribe(mailbox))
}

func (c *Client) List(ctx context.Context, ref, pattern string) (Record, error) {
	return c.Execute(ctx, command.CmdList(ref, pattern))
}

func (c *Client) LSub(ctx context.Context, ref, pattern string) (Record, error) {
	return c.Execute(ctx, command.CmdLSub(ref, pattern))
}

func (c *Client) Status(ctx context.Context, mailbox string, items []string) (Record, error) {
	return c.Execute(ctx, command.CmdStatus(mailbox, items))
}

func (c *Client) Fetch(ctx context.Context, seqSet, items string) (Record, error) {
	return c.Execute(ctx, command.CmdFetch(seqSet, items))
}

func (c *Client) UIDFetch(ctx context.Context, seqSet, items string) (Record, error) {
	return c.Execute(ctx, command.CmdUIDFetch(seqSet, items))
}

func (c *Client) Store(ctx context.Context, seqSet, item, value string) (Record, error) {
	return c.Execute(ctx, command.CmdStore(seqSet, item, value))
}

func (c *Client) Copy(ctx context.Context, seqSet, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdCopy(seqSet, mailbox))
}

func (c *Client) UIDCopy(ctx context.Context, seqSet, mailbox string) (Record, error) {
	return c.Execute(ctx, command.CmdUIDCopy(seqSet, mailbox))
}

func (c *Client) Search(ctx context.Context, criteria string) (Record, error) {
	return c.Execute(ctx, command.CmdSearch(criteria))
}

func (c *Client) UIDSearch(ctx context.Context, criteria string) (Record, error) {
	return c.Execute(ctx, command.CmdUIDSearch(criteria))
}

func (c *Client) Sort(ctx context.Context, sortCriteria, charset, searchCriteria string) (Record, error) {
	return c.Execute(ctx, command.CmdSort(sortCriteria, charset, searchCriteria))
}

func (c *Client) Thread(ctx context.Context, algorithm, charset, searchCriteria string) (Record, error) {
	return c.Execute(ctx, command.CmdThread(algorithm, charset, searchCriteria))
}

func (c *Client) Namespace(ctx context.Context) (Record, error) {
	return c.Execute(ctx, command.CmdNamespace())
}

func (c *Client) Append(ctx context.Context, mailbox string, flags []string, internalDate string, msg string) (Record, error) {
	return c.Execute(ctx, command.CmdAppend(mailbox, flags, internalDate, command.Str(msg)))
}

// Idle runs IDLE until stop is closed or ctx is done, then sends DONE and
// waits for the tagged completion. It returns early if the IDLE completes
// first (another command ended it, or the server did).
func (c *Client) Idle(ctx context.Context, stop <-chan struct{}) (Record, error) {
	return c.RunIdle(ctx, stop)
}
