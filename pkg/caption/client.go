// Package caption provides a persistent TCP client that pushes caption
// fragments to a downstream subtitle sink over the [wire] protocol.
//
// The client keeps one connection open across sends. A failed send closes
// the connection so the next send transparently reconnects; callers that
// need stronger guarantees can wrap sends in their own retry. Forwarding
// is best-effort: a dead sink must never stall transcript ingest or
// scoring.
package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hangulab/scriptlive/pkg/wire"
)

// Default connection parameters.
const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 5 * time.Second
)

// ErrBadResponse is returned when the sink acknowledges with an unexpected
// checkcode, request code, or non-zero status.
var ErrBadResponse = errors.New("caption: unexpected sink response")

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithDialTimeout sets the connect timeout. Default: 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithIOTimeout sets the per-send read/write deadline. Default: 5s.
func WithIOTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.ioTimeout = d
	}
}

// Client is a persistent caption sink client. All methods are safe for
// concurrent use; sends are serialized over the single connection.
type Client struct {
	addr        string
	checkcode   int32
	dialTimeout time.Duration
	ioTimeout   time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// New creates a [Client] for the sink at addr (host:port). checkcode is
// the protocol checkcode stamped on every request and expected back in
// every acknowledgement. No connection is made until [Client.Connect] or
// the first send.
func New(addr string, checkcode int32, opts ...Option) *Client {
	c := &Client{
		addr:        addr,
		checkcode:   checkcode,
		dialTimeout: defaultDialTimeout,
		ioTimeout:   defaultIOTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect establishes the connection if there is none. It is idempotent:
// calling it while connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx)
}

// Connected reports whether the client currently holds an open connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears down the connection. The client remains usable; the next
// send reconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

// Send pushes one raw payload (UTF-8 JSON with a "text" field) to the sink
// and waits for the acknowledgement. Empty payloads are dropped silently.
// On any transport or protocol failure the connection is discarded so the
// next call dials fresh.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return err
	}

	if err := c.sendLocked(payload); err != nil {
		// Drop the connection; the next Send reconnects.
		_ = c.closeLocked()
		return err
	}
	return nil
}

// SendText wraps text in a [wire.Fragment] payload and sends it.
func (c *Client) SendText(ctx context.Context, text string) error {
	payload, err := wire.EncodeFragment(wire.Fragment{Text: text})
	if err != nil {
		return err
	}
	return c.Send(ctx, payload)
}

func (c *Client) ensureLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("caption: connect %s: %w", c.addr, err)
	}
	c.conn = conn
	slog.Debug("caption sink connected", "addr", c.addr)
	return nil
}

func (c *Client) sendLocked(payload []byte) error {
	deadline := time.Now().Add(c.ioTimeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("caption: set deadline: %w", err)
	}

	req := wire.Request{
		Checkcode: c.checkcode,
		Code:      wire.ReqSubtitle,
		Payload:   payload,
	}
	if err := wire.WriteRequest(c.conn, req); err != nil {
		return err
	}

	resp, err := wire.ReadResponse(c.conn)
	if err != nil {
		return err
	}
	if resp.Checkcode != c.checkcode {
		return fmt.Errorf("%w: checkcode %#x, want %#x", ErrBadResponse, resp.Checkcode, c.checkcode)
	}
	if resp.Code != wire.ReqSubtitle {
		return fmt.Errorf("%w: request code %d, want %d", ErrBadResponse, resp.Code, wire.ReqSubtitle)
	}
	if resp.Status != wire.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBadResponse, resp.Status)
	}
	return nil
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
