package command

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncode_AtomAndQuoted(t *testing.T) {
	var buf bytes.Buffer
	cmd := CmdLogin("plainuser", "has space")
	aborted, err := Encode(&buf, "ym1", cmd, false, nil)
	if err != nil || aborted {
		t.Fatalf("Encode: aborted=%v err=%v", aborted, err)
	}
	want := "ym1 LOGIN plainuser \"has space\"\r\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestEncode_HyphenatedArgIsQuoted(t *testing.T) {
	var buf bytes.Buffer
	cmd := CmdLogin("plain-user", "pw")
	if _, err := Encode(&buf, "ym1", cmd, false, nil); err != nil {
		t.Fatal(err)
	}
	want := "ym1 LOGIN \"plain-user\" pw\r\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestEncode_EmptyStringIsQuoted(t *testing.T) {
	var buf bytes.Buffer
	cmd := CmdLogin("", "pw")
	if _, err := Encode(&buf, "ym1", cmd, false, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `LOGIN "" pw`) {
		t.Fatalf("got %q", buf.String())
	}
}

func TestEncode_CRLFForcesLiteralPlus(t *testing.T) {
	var buf bytes.Buffer
	body := "line one\r\nline two"
	cmd := CmdAppend("INBOX", nil, "", Str(body))
	aborted, err := Encode(&buf, "ym2", cmd, true, nil)
	if err != nil || aborted {
		t.Fatalf("Encode: aborted=%v err=%v", aborted, err)
	}
	want := "ym2 APPEND INBOX {18+}\r\n" + body + "\r\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestEncode_SynchronizingLiteralWaitsForContinuation(t *testing.T) {
	var buf bytes.Buffer
	waited := false
	wait := func() error {
		waited = true
		return nil
	}
	cmd := CmdAppend("INBOX", nil, "", Str("has\r\nCRLF"))
	if _, err := Encode(&buf, "ym3", cmd, false, wait); err != nil {
		t.Fatal(err)
	}
	if !waited {
		t.Fatal("expected Encode to call Waiter before writing literal octets")
	}
	if !strings.Contains(buf.String(), "{9}\r\n") {
		t.Fatalf("expected synchronizing literal marker, got %q", buf.String())
	}
}

func TestEncode_AbortedSynchronizingLiteral(t *testing.T) {
	var buf bytes.Buffer
	wait := func() error { return ErrAborted }
	cmd := CmdAppend("INBOX", nil, "", Str("has\r\nCRLF"))
	aborted, err := Encode(&buf, "ym4", cmd, false, wait)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !aborted {
		t.Fatal("expected aborted=true")
	}
	if strings.Contains(buf.String(), "CRLF") {
		t.Fatal("literal octets must not be written after abort")
	}
}

func TestEncode_NoCRLFArgNeverProducesLiteral(t *testing.T) {
	var buf bytes.Buffer
	cmd := CmdLogin("user", strings.Repeat("x", 5000))
	if _, err := Encode(&buf, "ym5", cmd, false, func() error {
		t.Fatal("should not need a literal for a CRLF-free argument")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestEncode_FirstArgMustBeVerbatim(t *testing.T) {
	_, err := Encode(&bytes.Buffer{}, "ym1", Command{Str("LOGIN")}, false, nil)
	if err == nil {
		t.Fatal("expected error when command[0] is not Verbatim")
	}
}
