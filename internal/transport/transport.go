// Package transport adapts a real byte stream (TCP/TLS socket, child
// process pipe) to the line/literal/poll primitives the engine and lexer
// need, mirroring the Stream/TCPStream split in ymaplib's original source
// (streams/Stream.py, streams/TCPStream.py) and the common bufio.Reader-
// over-net.Conn idiom for framing a line-oriented protocol.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"
)

// Transport is the abstract external collaborator the engine reads from
// and writes to. It is never implemented by the engine itself — callers
// supply one; no socket or TLS management is owned by the engine beyond
// driving this interface.
type Transport interface {
	// ReadLine reads one CRLF- or LF-terminated line with the terminator
	// stripped.
	ReadLine() ([]byte, error)
	// ReadExact reads exactly n octets (a literal's payload).
	ReadExact(n int) ([]byte, error)
	// Write writes p verbatim; callers are responsible for framing.
	Write(p []byte) (int, error)
	// WaitReadable blocks up to timeout for the next read to have data
	// ready, returning false on timeout without error.
	WaitReadable(timeout time.Duration) (bool, error)
	// UpgradeTLS wraps the underlying connection in TLS in place, for
	// STARTTLS; subsequent reads/writes go through the TLS session.
	UpgradeTLS(cfg *tls.Config) error
	// Close releases the underlying connection.
	Close() error
}

// connTransport adapts a net.Conn, the shape a real TCP or TLS connection
// speaks natively.
type connTransport struct {
	conn net.Conn
	br   *bufio.Reader
}

// NewConn wraps an established net.Conn (plain TCP or already-TLS) as a
// Transport.
func NewConn(conn net.Conn) Transport {
	return &connTransport{conn: conn, br: bufio.NewReader(conn)}
}

func (t *connTransport) ReadLine() ([]byte, error) {
	line, err := t.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			// fall through: return the partial final line, caller's next
			// read will see the real EOF.
		} else {
			return nil, err
		}
	}
	return trimCRLF(line), nil
}

func trimCRLF(s string) []byte {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return []byte(s)
}

func (t *connTransport) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *connTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *connTransport) WaitReadable(timeout time.Duration) (bool, error) {
	if t.br.Buffered() > 0 {
		return true, nil
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}
	defer t.conn.SetReadDeadline(time.Time{})

	_, err := t.br.Peek(1)
	if err == nil {
		return true, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false, nil
	}
	return false, err
}

func (t *connTransport) UpgradeTLS(cfg *tls.Config) error {
	tlsConn := tls.Client(t.conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return err
	}
	t.conn = tlsConn
	t.br = bufio.NewReader(tlsConn)
	return nil
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}
