package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const defaultIdleTimeout = 2 * time.Second

// Handler answers one request. The daemon's session controller is the only
// production implementation.
type Handler interface {
	Handle(context.Context, Request) Response
}

type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers one request per connection.
type Server struct {
	Handler Handler
	Logger  *slog.Logger

	// IdleTimeout bounds reading the request and, separately, writing the
	// reply. Zero means two seconds.
	IdleTimeout time.Duration
}

// Serve runs a Server with default settings.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	return (&Server{Handler: handler}).Serve(ctx, listener)
}

// Serve accepts clients until ctx is cancelled or the listener closes, then
// waits for in-flight connections to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.Handler == nil {
		return errors.New("ipc server requires a handler")
	}

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var conns sync.WaitGroup
	defer conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept ipc connection: %w", err)
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	timeout := s.IdleTimeout
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	resp := s.answer(ctx, conn)

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := writeMessage(conn, resp); err != nil {
		s.debug("ipc reply failed", "error", err.Error())
	}
}

func (s *Server) answer(ctx context.Context, conn net.Conn) Response {
	line, err := readLine(conn)
	if err != nil {
		s.debug("ipc request unreadable", "error", err.Error())
		return Response{Error: fmt.Sprintf("read request: %v", err)}
	}

	req, err := decodeRequest(line)
	if err != nil {
		s.debug("ipc request malformed", "error", err.Error())
		return Response{Error: err.Error()}
	}

	resp := s.Handler.Handle(ctx, req)
	if s.Logger != nil {
		s.Logger.Debug("ipc request handled",
			"command", req.Command,
			"arg", req.Arg,
			"ok", resp.OK,
			"state", resp.State,
		)
	}
	return resp
}

func (s *Server) debug(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Debug(msg, args...)
	}
}
