package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// Send delivers req to the daemon listening on path and waits for its reply.
// The whole exchange, dial included, is bounded by timeout.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, fmt.Errorf("set deadline: %w", err)
		}
	}
	return exchange(conn, req)
}

func exchange(conn net.Conn, req Request) (Response, error) {
	if err := writeMessage(conn, req); err != nil {
		return Response{}, fmt.Errorf("send %s request: %w", req.Command, err)
	}

	line, err := readLine(conn)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(line)
}

// Ping reports whether a daemon answers on path. A missing socket or one
// nobody listens on is not an error.
func Ping(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case NotRunning(err):
		return false, nil
	default:
		return false, fmt.Errorf("ping %s: %w", path, err)
	}
}

// NotRunning reports dial failures that mean no daemon owns the socket.
func NotRunning(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "no such file or directory")
}
