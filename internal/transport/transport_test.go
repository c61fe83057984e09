package transport

import (
	"net"
	"testing"
	"time"
)

func TestConnTransport_ReadLineAndExact(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	tr := NewConn(client)

	go func() {
		server.Write([]byte("* OK greeting\r\n"))
		server.Write([]byte("{5}\r\nhello"))
	}()

	line, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "* OK greeting" {
		t.Fatalf("line = %q", line)
	}

	lit, err := tr.ReadLine() // "{5}" with no trailing content except literal marker
	if err != nil {
		t.Fatalf("ReadLine literal marker: %v", err)
	}
	if string(lit) != "{5}" {
		t.Fatalf("literal marker = %q", lit)
	}

	octets, err := tr.ReadExact(5)
	if err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(octets) != "hello" {
		t.Fatalf("octets = %q", octets)
	}
}

func TestConnTransport_WaitReadableTimesOut(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	tr := NewConn(client)
	ready, err := tr.WaitReadable(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if ready {
		t.Fatal("expected not ready on idle connection")
	}
}
