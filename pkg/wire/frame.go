// Package wire implements the little-endian framed TCP protocol spoken by
// the speech-to-text pipeline, the monitor's ingest listener, and the
// downstream caption sink.
//
// Request layout:
//
//	header (8B) : [checkcode int32 LE][request_code int32 LE]
//	body  (4+N) : [data_size int32 LE][payload: N bytes UTF-8]
//
// Response layout:
//
//	header (8B) : [resp_checkcode int32 LE][request_code int32 LE]
//	body   (1B) : [status uint8], 0 = OK
//
// Payloads carry UTF-8 JSON with a "text" field; see [Fragment].
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ReqSubtitle is the request code for pushing one caption fragment.
const ReqSubtitle int32 = 0x01

// StatusOK is the response status byte signalling success.
const StatusOK byte = 0

// MaxPayloadSize caps the accepted payload length. Frames announcing more
// are rejected before any allocation; caption fragments are tiny and a
// larger size means a corrupt or hostile stream.
const MaxPayloadSize = 1 << 20

// ErrPayloadTooLarge is returned when a frame announces a payload beyond
// [MaxPayloadSize] or a negative size.
var ErrPayloadTooLarge = errors.New("wire: payload size out of range")

// Request is one framed message.
type Request struct {
	Checkcode int32
	Code      int32
	Payload   []byte
}

// Response is the acknowledgement for one [Request].
type Response struct {
	Checkcode int32
	Code      int32
	Status    byte
}

// Fragment is the JSON payload schema: one transcript fragment from the
// speech-to-text pipeline.
type Fragment struct {
	Text string `json:"text"`
}

// ReadRequest reads one full request frame from r. It returns io.EOF when
// the stream closes cleanly before a header and io.ErrUnexpectedEOF when
// it closes mid-frame.
func ReadRequest(r io.Reader) (Request, error) {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:8]); err != nil {
		if errors.Is(err, io.EOF) {
			return Request{}, io.EOF
		}
		return Request{}, fmt.Errorf("wire: read request header: %w", err)
	}
	if _, err := io.ReadFull(r, head[8:12]); err != nil {
		return Request{}, fmt.Errorf("wire: read payload size: %w", err)
	}

	req := Request{
		Checkcode: int32(binary.LittleEndian.Uint32(head[0:4])),
		Code:      int32(binary.LittleEndian.Uint32(head[4:8])),
	}

	size := int32(binary.LittleEndian.Uint32(head[8:12]))
	if size < 0 || size > MaxPayloadSize {
		return Request{}, fmt.Errorf("%w: %d", ErrPayloadTooLarge, size)
	}

	req.Payload = make([]byte, size)
	if _, err := io.ReadFull(r, req.Payload); err != nil {
		return Request{}, fmt.Errorf("wire: read payload: %w", err)
	}
	return req, nil
}

// WriteRequest writes one request frame to w.
func WriteRequest(w io.Writer, req Request) error {
	if len(req.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(req.Payload))
	}

	buf := make([]byte, 12+len(req.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(req.Checkcode))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(req.Code))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(req.Payload)))
	copy(buf[12:], req.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write request: %w", err)
	}
	return nil
}

// ReadResponse reads one response frame from w.
func ReadResponse(r io.Reader) (Response, error) {
	var buf [9]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Response{}, fmt.Errorf("wire: read response: %w", err)
	}
	return Response{
		Checkcode: int32(binary.LittleEndian.Uint32(buf[0:4])),
		Code:      int32(binary.LittleEndian.Uint32(buf[4:8])),
		Status:    buf[8],
	}, nil
}

// WriteResponse writes one response frame to w.
func WriteResponse(w io.Writer, resp Response) error {
	var buf [9]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(resp.Checkcode))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(resp.Code))
	buf[8] = resp.Status
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("wire: write response: %w", err)
	}
	return nil
}

// DecodeFragment parses a request payload as a [Fragment].
func DecodeFragment(payload []byte) (Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(payload, &f); err != nil {
		return Fragment{}, fmt.Errorf("wire: decode fragment: %w", err)
	}
	return f, nil
}

// EncodeFragment serializes a [Fragment] to a request payload.
func EncodeFragment(f Fragment) ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("wire: encode fragment: %w", err)
	}
	return b, nil
}
