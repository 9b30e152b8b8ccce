// Package monitor receives transcript fragments from the speech-to-text
// pipeline and feeds them into the hypothesis log.
//
// Two transports are supported: the legacy framed TCP protocol
// ([pkg/wire]) and a WebSocket endpoint for pipelines that push JSON text
// frames. Both append to the same [hypothesis.Log]; fragment ordering is
// arrival order. Forwarding to the downstream caption sink is best-effort
// and never affects ingest or scoring.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/hangulab/scriptlive/internal/hypothesis"
	"github.com/hangulab/scriptlive/internal/observe"
	"github.com/hangulab/scriptlive/pkg/caption"
	"github.com/hangulab/scriptlive/pkg/wire"
)

// Server accepts framed TCP connections from the speech-to-text pipeline.
// It is created with [NewServer] and driven by [Server.Serve].
type Server struct {
	log       *hypothesis.Log
	checkcode int32
	respCheck int32
	forward   *caption.Client
	metrics   *observe.Metrics

	mu sync.Mutex
	ln net.Listener
}

// ServerConfig configures a [Server].
type ServerConfig struct {
	// Log is the hypothesis log fragments are appended to. Required.
	Log *hypothesis.Log

	// Checkcode, when non-zero, must match the checkcode of every incoming
	// request frame; mismatching frames are acknowledged but not ingested.
	Checkcode int32

	// RespCheckcode is stamped on every acknowledgement frame.
	RespCheckcode int32

	// Forward, when non-nil, receives every raw fragment payload for
	// relay to the downstream caption sink.
	Forward *caption.Client

	// Metrics, when non-nil, receives ingest instrumentation.
	Metrics *observe.Metrics
}

// NewServer creates a [Server] from cfg.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		log:       cfg.Log,
		checkcode: cfg.Checkcode,
		respCheck: cfg.RespCheckcode,
		forward:   cfg.Forward,
		metrics:   cfg.Metrics,
	}
}

// Serve accepts connections on ln until ctx is done or ln fails. Each
// connection is handled on its own goroutine; Serve returns after the
// listener closes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	// Unblock Accept when the context ends.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// handleConn reads request frames until the peer disconnects. Undecodable
// payloads are logged and acknowledged anyway — a broken fragment must not
// kill the transcript stream.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	slog.Debug("ingest connection opened", "peer", peer)
	s.metrics.ConnOpened(ctx)
	defer s.metrics.ConnClosed(ctx)

	// Drop the connection when the context ends mid-read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Warn("ingest read failed", "peer", peer, "err", err)
				s.metrics.RecordRejected(ctx, "bad_frame")
			}
			return
		}

		if s.checkcode != 0 && req.Checkcode != s.checkcode {
			slog.Warn("ingest checkcode mismatch", "peer", peer, "got", req.Checkcode)
			s.metrics.RecordRejected(ctx, "bad_checkcode")
		} else {
			s.ingest(ctx, "tcp", req.Payload)
		}

		resp := wire.Response{Checkcode: s.respCheck, Code: req.Code, Status: wire.StatusOK}
		if err := wire.WriteResponse(conn, resp); err != nil {
			slog.Warn("ingest ack failed", "peer", peer, "err", err)
			return
		}
	}
}

// ingest decodes one raw fragment payload, appends its text to the
// hypothesis log, and forwards the payload downstream.
func (s *Server) ingest(ctx context.Context, transport string, payload []byte) {
	frag, err := wire.DecodeFragment(payload)
	if err != nil {
		slog.Warn("fragment decode failed", "transport", transport, "err", err)
		s.metrics.RecordRejected(ctx, "bad_json")
		return
	}

	text := strings.TrimSpace(frag.Text)
	if text == "" {
		s.metrics.RecordRejected(ctx, "empty_text")
		return
	}

	s.log.Append(text)
	s.metrics.RecordFragment(ctx, transport)
	slog.Debug("fragment received", "transport", transport, "text", text)

	if s.forward != nil {
		if err := s.forward.Send(ctx, payload); err != nil {
			// Best-effort: scoring continues even with a dead sink.
			slog.Warn("caption forward failed", "err", err)
			s.metrics.RecordForwardError(ctx)
		}
	}
}
