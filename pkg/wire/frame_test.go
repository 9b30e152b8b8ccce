package wire_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/hangulab/scriptlive/pkg/wire"
)

func TestRequestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	in := wire.Request{
		Checkcode: 20250918,
		Code:      wire.ReqSubtitle,
		Payload:   []byte(`{"text":"오늘 날씨가"}`),
	}
	if err := wire.WriteRequest(&buf, in); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	out, err := wire.ReadRequest(&buf)
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if out.Checkcode != in.Checkcode || out.Code != in.Code || !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestRequestWireLayout(t *testing.T) {
	t.Parallel()

	// The layout is fixed little-endian: existing pipelines depend on it.
	var buf bytes.Buffer
	err := wire.WriteRequest(&buf, wire.Request{Checkcode: 0x01350126, Code: 1, Payload: []byte("ab")})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	b := buf.Bytes()
	if len(b) != 14 {
		t.Fatalf("frame length = %d, want 14", len(b))
	}
	if got := binary.LittleEndian.Uint32(b[0:4]); got != 0x01350126 {
		t.Errorf("checkcode bytes = %#x, want 0x01350126", got)
	}
	if got := binary.LittleEndian.Uint32(b[8:12]); got != 2 {
		t.Errorf("size bytes = %d, want 2", got)
	}
	if string(b[12:]) != "ab" {
		t.Errorf("payload bytes = %q, want %q", b[12:], "ab")
	}
}

func TestReadRequestCleanEOF(t *testing.T) {
	t.Parallel()

	_, err := wire.ReadRequest(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestReadRequestTruncatedFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := wire.WriteRequest(&buf, wire.Request{Code: 1, Payload: []byte("hello")}); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]

	_, err := wire.ReadRequest(bytes.NewReader(truncated))
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want mid-frame error", err)
	}
}

func TestReadRequestRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	var head [12]byte
	binary.LittleEndian.PutUint32(head[8:12], wire.MaxPayloadSize+1)

	_, err := wire.ReadRequest(bytes.NewReader(head[:]))
	if !errors.Is(err, wire.ErrPayloadTooLarge) {
		t.Errorf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	in := wire.Response{Checkcode: 20250918, Code: wire.ReqSubtitle, Status: wire.StatusOK}
	if err := wire.WriteResponse(&buf, in); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	out, err := wire.ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestDecodeFragment(t *testing.T) {
	t.Parallel()

	f, err := wire.DecodeFragment([]byte(`{"text":"안녕하세요"}`))
	if err != nil {
		t.Fatalf("DecodeFragment: %v", err)
	}
	if f.Text != "안녕하세요" {
		t.Errorf("Text = %q, want %q", f.Text, "안녕하세요")
	}

	if _, err := wire.DecodeFragment([]byte("not json")); err == nil {
		t.Error("DecodeFragment accepted malformed JSON")
	}
}
