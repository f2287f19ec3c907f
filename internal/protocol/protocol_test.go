package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/lossyudp/internal/testutil/testlog"
)

func TestJSONCodecWireShape(t *testing.T) {
	testlog.Start(t)
	c := JSONCodec{}
	raw, err := c.EncodeMessage(Message{Msg: "hello", Seq: 7})
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	if string(raw) != `{"msg":"hello","seq":7}` {
		t.Fatalf("unexpected message bytes: %s", raw)
	}
	raw, err = c.EncodeAck(Ack{Seq: 7})
	if err != nil {
		t.Fatalf("encode ack: %v", err)
	}
	if string(raw) != `{"seq":7}` {
		t.Fatalf("unexpected ack bytes: %s", raw)
	}
}

func TestJSONCodecRejectsIncompleteRecords(t *testing.T) {
	testlog.Start(t)
	c := JSONCodec{}
	if _, err := c.DecodeMessage([]byte(`{"seq":3}`)); err == nil {
		t.Fatalf("expected missing msg to fail")
	}
	if _, err := c.DecodeMessage([]byte(`{"msg":"x"}`)); !errors.Is(err, ErrMissingSeq) {
		t.Fatalf("expected ErrMissingSeq, got %v", err)
	}
	if _, err := c.DecodeMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected garbage to fail")
	}
	if _, err := c.DecodeMessage(nil); !errors.Is(err, ErrEmptyDatagram) {
		t.Fatalf("expected ErrEmptyDatagram, got %v", err)
	}
	if _, err := c.DecodeAck([]byte(`{"seq":-1}`)); err == nil {
		t.Fatalf("expected negative seq to fail")
	}
	ack, err := c.DecodeAck([]byte(`{"seq":0}`))
	if err != nil || ack.Seq != 0 {
		t.Fatalf("explicit zero seq should decode: ack=%+v err=%v", ack, err)
	}
}

func TestMsgpackCodecRoundTrip(t *testing.T) {
	testlog.Start(t)
	c, err := CodecByName("MSGPACK")
	if err != nil {
		t.Fatalf("codec by name: %v", err)
	}
	raw, err := c.EncodeMessage(Message{Msg: "binary", Seq: 1 << 40})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.DecodeMessage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Msg != "binary" || got.Seq != 1<<40 {
		t.Fatalf("unexpected message: %+v", got)
	}
	if _, err := c.DecodeMessage([]byte(`{"msg":"x","seq":1}`)); err == nil {
		t.Fatalf("json bytes must not decode as msgpack")
	}
}

func TestCodecByNameUnknown(t *testing.T) {
	testlog.Start(t)
	if _, err := CodecByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
	c, err := CodecByName("")
	if err != nil || c.Name() != CodecJSON {
		t.Fatalf("empty name should select json: %v %v", c, err)
	}
}

func TestLogEventLine(t *testing.T) {
	testlog.Start(t)
	ev := NewLogEvent(ComponentClient, EventSend, 4)
	line, err := ev.EncodeLine()
	if err != nil {
		t.Fatalf("encode line: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) || bytes.Count(line, []byte("\n")) != 1 {
		t.Fatalf("expected single trailing newline: %q", line)
	}
	got, err := DecodeLine(line)
	if err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if got.Component != ComponentClient || got.Event != EventSend || got.Seq == nil || *got.Seq != 4 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if time.Since(time.Unix(int64(got.TS), 0)) > time.Minute {
		t.Fatalf("timestamp not current: %v", got.TS)
	}
}

func TestDecodeLineOptionalSeqAndMalformed(t *testing.T) {
	testlog.Start(t)
	got, err := DecodeLine([]byte(`{"ts":1.5,"component":"server","event":"recv","seq":null}`))
	if err != nil {
		t.Fatalf("null seq should decode: %v", err)
	}
	if got.Seq != nil {
		t.Fatalf("expected nil seq, got %v", *got.Seq)
	}
	for _, line := range []string{``, `{`, `{"component":"client","event":"send"}`, `{"ts":1,"event":"send"}`} {
		if _, err := DecodeLine([]byte(line)); !errors.Is(err, ErrMalformedEvent) {
			t.Fatalf("line %q: expected ErrMalformedEvent, got %v", line, err)
		}
	}
}
