package response

import (
	"io"
	"testing"
)

// nilSource is used for lines with no literals.
type nilSource struct{}

func (nilSource) ReadExact(n int) ([]byte, error) { return nil, io.ErrUnexpectedEOF }
func (nilSource) ReadLine() ([]byte, error)       { return nil, io.EOF }

func TestParse_TaggedOK(t *testing.T) {
	rec, err := Parse([]byte("ym3 OK [READ-WRITE] SELECT completed"), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Tag != "ym3" || rec.Status != "OK" || rec.Code.Name != "READ-WRITE" {
		t.Fatalf("got %+v", rec)
	}
	if rec.Text != "SELECT completed" {
		t.Fatalf("text = %q", rec.Text)
	}
}

func TestParse_UntaggedNumbered(t *testing.T) {
	rec, err := Parse([]byte("* 172 EXISTS"), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Kind != KindExists || rec.Data.(int) != 172 {
		t.Fatalf("got %+v", rec)
	}
}

func TestParse_Capability(t *testing.T) {
	rec, err := Parse([]byte("* CAPABILITY IMAP4rev1 LITERAL+ IDLE"), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	caps, ok := rec.Data.([]string)
	if !ok || len(caps) != 3 || caps[0] != "IMAP4REV1" || caps[1] != "LITERAL+" {
		t.Fatalf("got %+v", rec)
	}
}

func TestParse_List(t *testing.T) {
	rec, err := Parse([]byte(`* LIST (\HasNoChildren) "/" INBOX`), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	item := rec.Data.(MailboxListItem)
	if item.Delimiter.Value != "/" || item.Name != "INBOX" || len(item.Flags) != 1 {
		t.Fatalf("got %+v", item)
	}
}

func TestParse_FetchWithEnvelopeAndUID(t *testing.T) {
	line := []byte(`* 1 FETCH (UID 42 FLAGS (\Seen) ENVELOPE ("date" "subj" ((NIL NIL "a" "b.com")) NIL NIL NIL NIL NIL NIL "<id@b.com>"))`)
	rec, err := Parse(line, nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fd := rec.Data.(FetchData)
	if fd.Seq != 1 {
		t.Fatalf("seq = %d", fd.Seq)
	}
	if fd.Items["UID"].(int64) != 42 {
		t.Fatalf("uid = %+v", fd.Items["UID"])
	}
	env := fd.Items["ENVELOPE"].(Envelope)
	if env.Subject.Value != "subj" || len(env.From) != 1 || env.From[0].Mailbox.Value != "a" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.From[0].Name.IsNIL != true {
		t.Fatalf("expected NIL name in from address, got %+v", env.From[0])
	}
	if env.Sender != nil {
		t.Fatalf("expected NIL sender list to parse as nil slice, got %+v", env.Sender)
	}
}

func TestParse_FetchBodySection(t *testing.T) {
	line := []byte(`* 3 FETCH (BODY[HEADER.FIELDS (To From)] "To: a@b.com\r\n")`)
	rec, err := Parse(line, nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fd := rec.Data.(FetchData)
	if _, ok := fd.Items["BODY[HEADER.FIELDS (TO FROM)]"]; !ok {
		t.Fatalf("missing BODY[HEADER.FIELDS (TO FROM)] key, got keys %v", fd.Items)
	}
}

func TestParse_FetchInternalDate(t *testing.T) {
	line := []byte(`* 4 FETCH (INTERNALDATE "17-Jul-1996 02:44:25 -0700")`)
	rec, err := Parse(line, nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fd := rec.Data.(FetchData)
	ts, ok := fd.Items["INTERNALDATE"].(int64)
	if !ok {
		t.Fatalf("expected int64 timestamp, got %+v", fd.Items["INTERNALDATE"])
	}
	want := int64(837596665)
	if ts != want {
		t.Fatalf("timestamp = %d, want %d", ts, want)
	}
}

func TestParse_FetchUnparseableInternalDateIsParseError(t *testing.T) {
	line := []byte(`* 4 FETCH (INTERNALDATE "not a date")`)
	_, err := Parse(line, nilSource{})
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected ParseError, got %v (%T)", err, err)
	}
}

func TestParse_SearchNonIntegerTokenIsParseError(t *testing.T) {
	_, err := Parse([]byte("* SEARCH 1 2 garbage"), nilSource{})
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected ParseError, got %v (%T)", err, err)
	}
}

func TestParse_StatusNonNumericValueIsParseError(t *testing.T) {
	_, err := Parse([]byte("* STATUS INBOX (MESSAGES abc)"), nilSource{})
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected ParseError, got %v (%T)", err, err)
	}
}

func TestParse_StatusAttrsUpperCased(t *testing.T) {
	rec, err := Parse([]byte("* STATUS INBOX (messages 5 uidnext 100)"), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	attrs := rec.Data.(StatusAttrs)
	if attrs.Attrs["MESSAGES"] != 5 || attrs.Attrs["UIDNEXT"] != 100 {
		t.Fatalf("got %+v", attrs.Attrs)
	}
}

func TestParse_ThreadNested(t *testing.T) {
	rec, err := Parse([]byte("* THREAD (2)(3 6 (4 23)(44 7 96))"), nilSource{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	roots := rec.Data.([]*ThreadNode)
	if len(roots) != 2 {
		t.Fatalf("want 2 roots, got %d", len(roots))
	}
	if roots[0].ID != 2 {
		t.Fatalf("root[0] = %+v", roots[0])
	}
	three := roots[1]
	if three.ID != 3 || len(three.Children) != 1 {
		t.Fatalf("root[1] = %+v", three)
	}
	six := three.Children[0]
	if six.ID != 6 {
		t.Fatalf("root[1] child = %+v", six)
	}
	if len(six.Children) != 2 {
		t.Fatalf("expected 2 branches under 6, got %d: %s", len(six.Children), six.String())
	}
}

func TestParse_UnknownResponseIsReported(t *testing.T) {
	_, err := Parse([]byte("* WHATEVER not a thing"), nilSource{})
	if _, ok := err.(*UnknownResponseError); !ok {
		t.Fatalf("expected UnknownResponseError, got %v (%T)", err, err)
	}
}

func TestParse_ContinuationIsNotARecord(t *testing.T) {
	if !IsContinuation([]byte("+ go ahead")) {
		t.Fatal("expected continuation detected")
	}
}
