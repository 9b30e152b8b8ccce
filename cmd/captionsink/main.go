// Command captionsink is a minimal downstream caption sink. It accepts the
// framed TCP protocol the monitor forwards fragments over and appends the
// caption text to an output file, starting a new line after each
// sentence-final punctuation mark. Useful for recording the raw caption
// stream during a broadcast and for local testing of the forward path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/hangulab/scriptlive/internal/config"
	"github.com/hangulab/scriptlive/pkg/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	listenAddr := flag.String("listen", "127.0.0.1:7052", "TCP address to accept forwarded captions on")
	checkcode := flag.String("checkcode", "0", "checkcode stamped on acknowledgement frames (decimal or 0x hex)")
	outPath := flag.String("out", "captions.txt", "file the caption text is appended to")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	code, err := config.ParseCheckcode(*checkcode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captionsink: %v\n", err)
		return 1
	}

	out, err := os.OpenFile(*outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captionsink: open output: %v\n", err)
		return 1
	}
	defer out.Close()

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captionsink: listen: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := &sink{out: out, respCheck: int32(code)}

	slog.Info("caption sink listening", "addr", ln.Addr().String(), "out", *outPath)
	if err := sink.serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serve error", "err", err)
		return 1
	}
	slog.Info("caption sink stopped")
	return 0
}

// sink appends received caption text to a single output writer. Writes from
// concurrent connections are serialised.
type sink struct {
	respCheck int32

	mu  sync.Mutex
	out io.Writer
}

func (s *sink) serve(ctx context.Context, ln net.Listener) error {
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

func (s *sink) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	slog.Info("connection opened", "peer", peer)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Warn("read failed", "peer", peer, "err", err)
			}
			return
		}

		if frag, err := wire.DecodeFragment(req.Payload); err != nil {
			slog.Warn("fragment decode failed", "peer", peer, "err", err)
		} else if err := s.write(frag.Text); err != nil {
			slog.Error("write failed", "err", err)
		}

		resp := wire.Response{Checkcode: s.respCheck, Code: req.Code, Status: wire.StatusOK}
		if err := wire.WriteResponse(conn, resp); err != nil {
			slog.Warn("ack failed", "peer", peer, "err", err)
			return
		}
	}
}

// write appends one caption fragment, breaking the line after a sentence
// ends so the output file reads as prose.
func (s *sink) write(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sep := " "
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") ||
		strings.HasSuffix(text, "!") || strings.HasSuffix(text, "…") {
		sep = "\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, text+sep)
	return err
}
