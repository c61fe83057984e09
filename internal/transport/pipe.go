package transport

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"time"
)

// ErrTLSUnsupported is returned by pipeTransport.UpgradeTLS: a bare
// reader/writer pipe (e.g. a local child process) has no TLS session to
// upgrade into.
var ErrTLSUnsupported = errors.New("transport: TLS upgrade unsupported on a pipe transport")

// pipeTransport adapts a plain io.Reader/io.WriteCloser pair — a child
// process's stdin/stdout, for instance — that has no socket deadlines to
// drive WaitReadable with. It degrades WaitReadable to a background
// single-byte peek with its own timer, the same trick
// streams/TCPStream.py falls back to when select.poll() isn't available
// on the platform.
type pipeTransport struct {
	r    *bufio.Reader
	w    io.WriteCloser
	peek chan peekResult
}

type peekResult struct {
	b   byte
	err error
}

// NewPipe wraps an io.Reader/io.WriteCloser pair as a Transport.
func NewPipe(r io.Reader, w io.WriteCloser) Transport {
	return &pipeTransport{r: bufio.NewReader(r), w: w}
}

func (t *pipeTransport) ReadLine() ([]byte, error) {
	line, err := t.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimCRLF(line), nil
		}
		return nil, err
	}
	return trimCRLF(line), nil
}

func (t *pipeTransport) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *pipeTransport) Write(p []byte) (int, error) {
	return t.w.Write(p)
}

func (t *pipeTransport) WaitReadable(timeout time.Duration) (bool, error) {
	if t.r.Buffered() > 0 {
		return true, nil
	}
	if t.peek == nil {
		t.peek = make(chan peekResult, 1)
		go func() {
			b, err := t.r.ReadByte()
			if err == nil {
				_ = t.r.UnreadByte()
			}
			t.peek <- peekResult{b: b, err: err}
		}()
	}
	select {
	case res := <-t.peek:
		t.peek = nil
		if res.err != nil {
			return false, res.err
		}
		return true, nil
	case <-time.After(timeout):
		return false, nil
	}
}

func (t *pipeTransport) UpgradeTLS(cfg *tls.Config) error {
	return ErrTLSUnsupported
}

func (t *pipeTransport) Close() error {
	return t.w.Close()
}
