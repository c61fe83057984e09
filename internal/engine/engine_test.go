package engine

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ymap/internal/command"
	"ymap/internal/transport"
)

// fakeServer reads lines from one side of a net.Pipe and lets the test
// script canned responses, the way a real IMAP server would.
type fakeServer struct {
	conn net.Conn
	br   *bufio.Reader
}

func newFakeServer(t *testing.T) (*fakeServer, transport.Transport) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return &fakeServer{conn: server, br: bufio.NewReader(server)}, transport.NewConn(client)
}

func (f *fakeServer) readLine(t *testing.T) string {
	t.Helper()
	line, err := f.br.ReadString('\n')
	require.NoError(t, err, "fakeServer.readLine")
	return strings.TrimRight(line, "\r\n")
}

func (f *fakeServer) send(t *testing.T, s string) {
	t.Helper()
	_, err := f.conn.Write([]byte(s))
	require.NoError(t, err, "fakeServer.send")
}

func TestEngine_ExecuteNoopAndTagAllocation(t *testing.T) {
	srv, tr := newFakeServer(t)
	e := New(tr, Options{})
	e.StartWorker(context.Background())
	defer e.StopWorker()

	done := make(chan struct{})
	go func() {
		defer close(done)
		line1 := srv.readLine(t)
		require.True(t, strings.HasPrefix(line1, "ym1 NOOP"), "first tag = %q", line1)
		srv.send(t, "ym1 OK done\r\n")

		line2 := srv.readLine(t)
		require.True(t, strings.HasPrefix(line2, "ym2 NOOP"), "second tag = %q", line2)
		srv.send(t, "ym2 OK done\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := e.Execute(ctx, command.CmdNoop())
	require.NoError(t, err)
	require.Equal(t, "ym1", rec.Tag)
	require.Equal(t, "OK", rec.Status)

	rec2, err := e.Execute(ctx, command.CmdNoop())
	require.NoError(t, err)
	require.Equal(t, "ym2", rec2.Tag, "expected strictly increasing tag")
	<-done
}

func TestEngine_CapabilityMaskNeverLeaks(t *testing.T) {
	srv, tr := newFakeServer(t)
	e := New(tr, Options{CapabilityMask: []string{"LOGINDISABLED"}})
	e.StartWorker(context.Background())
	defer e.StopWorker()

	go func() {
		srv.readLine(t)
		srv.send(t, "* CAPABILITY IMAP4rev1 LOGINDISABLED LITERAL+\r\n")
		srv.send(t, "ym1 OK done\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := e.Execute(ctx, command.CmdCapability())
	require.NoError(t, err)

	caps := e.Capabilities()
	_, masked := caps["LOGINDISABLED"]
	require.False(t, masked, "masked capability leaked into effective set")
	_, ok := caps["LITERAL+"]
	require.True(t, ok, "expected LITERAL+ present")
}

func TestEngine_DisconnectFailsPendingCommands(t *testing.T) {
	srv, tr := newFakeServer(t)
	e := New(tr, Options{})
	e.StartWorker(context.Background())

	go func() {
		srv.readLine(t)
		srv.conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := e.Execute(ctx, command.CmdNoop())
	require.Error(t, err, "expected disconnect to fail the pending command")
	require.Equal(t, HealthBroken, e.Health())
}

func TestEngine_IdleWaitsForContinuationThenDone(t *testing.T) {
	srv, tr := newFakeServer(t)
	e := New(tr, Options{})
	e.StartWorker(context.Background())
	defer e.StopWorker()

	doneFromClient := make(chan struct{})
	go func() {
		line := srv.readLine(t)
		require.True(t, strings.HasPrefix(line, "ym1 IDLE"), "idle command = %q", line)
		srv.send(t, "+ idling\r\n")
		srv.send(t, "* 5 EXISTS\r\n")

		tail := srv.readLine(t)
		require.Equal(t, "DONE", tail)
		close(doneFromClient)
		srv.send(t, "ym1 OK IDLE terminated\r\n")
	}()

	stop := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_, _ = e.Next(ctx)
	}()

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(stop)
	}()

	rec, err := e.RunIdle(ctx, stop)
	require.NoError(t, err)
	require.Equal(t, "OK", rec.Status)
	<-doneFromClient
}

// TestEngine_ExecuteEndsActiveIdleBeforeDispatch drives IDLE into its
// idling state and then issues a second command without ever closing
// stop: Execute must itself emit DONE and clear in_idle before its own
// command's bytes reach the wire, rather than racing or interleaving them.
func TestEngine_ExecuteEndsActiveIdleBeforeDispatch(t *testing.T) {
	srv, tr := newFakeServer(t)
	e := New(tr, Options{})
	e.StartWorker(context.Background())
	defer e.StopWorker()

	go func() {
		line := srv.readLine(t)
		require.True(t, strings.HasPrefix(line, "ym1 IDLE"), "idle command = %q", line)
		srv.send(t, "+ idling\r\n")

		tail := srv.readLine(t)
		require.Equal(t, "DONE", tail, "expected Execute to close out IDLE before its own command")
		srv.send(t, "ym1 OK IDLE terminated\r\n")

		line2 := srv.readLine(t)
		require.True(t, strings.HasPrefix(line2, "ym2 NOOP"), "second tag = %q", line2)
		srv.send(t, "ym2 OK done\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stop := make(chan struct{}) // never closed; Execute must end the IDLE itself
	idleDone := make(chan struct{})
	go func() {
		defer close(idleDone)
		rec, err := e.RunIdle(ctx, stop)
		require.NoError(t, err)
		require.Equal(t, "OK", rec.Status)
	}()

	require.Eventually(t, e.InIdle, 2*time.Second, time.Millisecond, "expected in_idle to be set once idling")
	rec, err := e.Execute(ctx, command.CmdNoop())
	require.NoError(t, err)
	require.Equal(t, "ym2", rec.Tag)
	<-idleDone
}
