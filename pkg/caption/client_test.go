package caption_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/hangulab/scriptlive/pkg/caption"
	"github.com/hangulab/scriptlive/pkg/wire"
)

const testCheckcode int32 = 20250918

// fakeSink is an in-process sink server collecting received payloads.
type fakeSink struct {
	ln net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	payloads []string

	// respond overrides the default OK acknowledgement when non-nil.
	respond func(req wire.Request) wire.Response
}

func newFakeSink(t *testing.T) *fakeSink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSink{ln: ln}
	t.Cleanup(s.stop)
	go s.serve()
	return s
}

// stop closes the listener and every accepted connection.
func (s *fakeSink) stop() {
	s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

func (s *fakeSink) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go func(conn net.Conn) {
			defer conn.Close()
			for {
				req, err := wire.ReadRequest(conn)
				if err != nil {
					return
				}
				s.mu.Lock()
				s.payloads = append(s.payloads, string(req.Payload))
				respond := s.respond
				s.mu.Unlock()

				resp := wire.Response{Checkcode: testCheckcode, Code: req.Code, Status: wire.StatusOK}
				if respond != nil {
					resp = respond(req)
				}
				if err := wire.WriteResponse(conn, resp); err != nil {
					return
				}
			}
		}(conn)
	}
}

func (s *fakeSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.payloads))
	copy(out, s.payloads)
	return out
}

func TestClientSendText(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(t)
	c := caption.New(sink.ln.Addr().String(), testCheckcode)
	defer c.Close()

	if err := c.SendText(context.Background(), "오늘 날씨가"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := c.SendText(context.Background(), "매우 좋습니다"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	got := sink.received()
	if len(got) != 2 {
		t.Fatalf("sink received %d payloads, want 2", len(got))
	}
	f, err := wire.DecodeFragment([]byte(got[0]))
	if err != nil {
		t.Fatalf("decode forwarded payload: %v", err)
	}
	if f.Text != "오늘 날씨가" {
		t.Errorf("forwarded text = %q, want %q", f.Text, "오늘 날씨가")
	}
}

func TestClientDropsEmptyPayload(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(t)
	c := caption.New(sink.ln.Addr().String(), testCheckcode)
	defer c.Close()

	if err := c.Send(context.Background(), nil); err != nil {
		t.Fatalf("Send(nil): %v", err)
	}
	if got := sink.received(); len(got) != 0 {
		t.Errorf("sink received %d payloads for empty send, want 0", len(got))
	}
}

func TestClientConnectIdempotent(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(t)
	c := caption.New(sink.ln.Addr().String(), testCheckcode)
	defer c.Close()

	for i := 0; i < 3; i++ {
		if err := c.Connect(context.Background()); err != nil {
			t.Fatalf("Connect #%d: %v", i+1, err)
		}
	}
	if !c.Connected() {
		t.Error("Connected = false after Connect")
	}
}

func TestClientRejectsBadAcknowledgement(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(t)
	sink.respond = func(req wire.Request) wire.Response {
		return wire.Response{Checkcode: testCheckcode, Code: req.Code, Status: 7}
	}

	c := caption.New(sink.ln.Addr().String(), testCheckcode)
	defer c.Close()

	err := c.SendText(context.Background(), "안녕하세요")
	if !errors.Is(err, caption.ErrBadResponse) {
		t.Fatalf("err = %v, want ErrBadResponse", err)
	}
	// The poisoned connection must have been dropped.
	if c.Connected() {
		t.Error("Connected = true after failed send, want dropped connection")
	}
}

func TestClientReconnectsAfterSinkRestart(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(t)
	addr := sink.ln.Addr().String()

	c := caption.New(addr, testCheckcode)
	defer c.Close()

	if err := c.SendText(context.Background(), "첫번째"); err != nil {
		t.Fatalf("first SendText: %v", err)
	}

	// Kill the sink including the accepted connection; the client's next
	// send fails and drops its own side.
	sink.stop()
	if err := c.SendText(context.Background(), "유실"); err == nil {
		t.Fatal("send against stopped sink succeeded, want error")
	}
	if c.Connected() {
		t.Fatal("Connected = true after failed send")
	}

	// Restart a sink on the same address and verify the client recovers.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("could not rebind %s: %v", addr, err)
	}
	restarted := &fakeSink{ln: ln}
	t.Cleanup(restarted.stop)
	go restarted.serve()

	if err := c.SendText(context.Background(), "두번째"); err != nil {
		t.Fatalf("SendText after restart: %v", err)
	}
	if got := restarted.received(); len(got) != 1 {
		t.Errorf("restarted sink received %d payloads, want 1", len(got))
	}
}
