package ymap

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"ymap/internal/transport"
)

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
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func (f *fakeServer) send(t *testing.T, s string) {
	t.Helper()
	if _, err := f.conn.Write([]byte(s)); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestNewClient_GreetingOKWithCapability(t *testing.T) {
	srv, tr := newFakeServer(t)

	go func() {
		srv.send(t, "* OK [CAPABILITY IMAP4rev1 LITERAL+ IDLE] ymap ready\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := NewClient(ctx, tr, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if c.Greeting != GreetingOK {
		t.Fatalf("greeting = %v, want OK", c.Greeting)
	}
	caps := c.Capabilities()
	if _, ok := caps["LITERAL+"]; !ok {
		t.Fatalf("expected LITERAL+ seeded from greeting, got %v", caps)
	}
}

func TestClient_LoginRoundTrip(t *testing.T) {
	srv, tr := newFakeServer(t)

	go func() {
		srv.send(t, "* OK ymap ready\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := NewClient(ctx, tr, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	go func() {
		line := srv.readLine(t)
		if !strings.Contains(line, "LOGIN alice") {
			t.Errorf("login command = %q", line)
		}
		srv.send(t, "ym1 OK LOGIN completed\r\n")
	}()

	rec, err := c.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Status != "OK" {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestNewClient_PreAuthGreeting(t *testing.T) {
	srv, tr := newFakeServer(t)
	go func() {
		srv.send(t, "* PREAUTH already authenticated\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := NewClient(ctx, tr, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if c.Greeting != GreetingPreAuth {
		t.Fatalf("greeting = %v, want PreAuth", c.Greeting)
	}
}

func TestNewClient_ByeGreetingIsError(t *testing.T) {
	srv, tr := newFakeServer(t)
	go func() {
		srv.send(t, "* BYE overloaded, try later\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewClient(ctx, tr, Options{})
	if err == nil {
		t.Fatal("expected error on BYE greeting")
	}
}
