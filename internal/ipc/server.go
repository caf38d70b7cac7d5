package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"

	"ark/internal/logger"
)

// Handler answers one decoded RPC request. Implementations live in cmd/agentd,
// closing over the query engine and action dispatcher.
type Handler func(ctx context.Context, req Request) (any, error)

// Server listens on a Unix domain socket, falling back to a loopback TCP
// listener at runtime when Unix sockets are unavailable (e.g. Windows) —
// original_source/agent/src/ipc.rs picks this at compile time via
// #[cfg(unix)]/#[cfg(windows)]; Go's net package makes the same fallback
// possible as a runtime decision instead.
type Server struct {
	socketPath string
	tcpAddr    string
	handler    Handler

	listener net.Listener
}

// NewServer builds a Server bound to socketPath, falling back to tcpAddr if
// the Unix socket cannot be created.
func NewServer(socketPath, tcpAddr string, handler Handler) *Server {
	return &Server{socketPath: socketPath, tcpAddr: tcpAddr, handler: handler}
}

// Listen opens the listening socket, cleaning up a stale socket file left
// behind by a previous unclean shutdown and setting 0o660 permissions on
// the new one.
func (s *Server) Listen() error {
	if s.socketPath != "" {
		if err := removeStaleSocket(s.socketPath); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
			return err
		}
		l, err := net.Listen("unix", s.socketPath)
		if err == nil {
			if chmodErr := os.Chmod(s.socketPath, 0o660); chmodErr != nil {
				logger.Warnf("ipc: failed to chmod socket %s: %v", s.socketPath, chmodErr)
			}
			s.listener = l
			logger.Infof("ipc: listening on unix socket %s", s.socketPath)
			return nil
		}
		logger.Warnf("ipc: unix socket unavailable (%v), falling back to tcp %s", err, s.tcpAddr)
	}

	l, err := net.Listen("tcp", s.tcpAddr)
	if err != nil {
		return err
	}
	s.listener = l
	logger.Infof("ipc: listening on tcp %s", s.tcpAddr)
	return nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}

// Serve accepts connections until ctx is cancelled, handling each on its
// own goroutine, mirroring the Rust source's tokio::spawn-per-connection
// accept loop.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnf("ipc: accept failed: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		reqBytes, err := readFrame(conn, MaxRequestSize)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				return
			}
			return
		}

		var req Request
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			s.reply(conn, errorResponse("parse request: "+err.Error()))
			continue
		}

		data, err := s.handler(ctx, req)
		if err != nil {
			s.reply(conn, errorResponse(err.Error()))
			continue
		}

		payload, err := json.Marshal(data)
		if err != nil {
			s.reply(conn, errorResponse("marshal response: "+err.Error()))
			continue
		}
		s.reply(conn, Response{Success: true, Data: payload})
	}
}

func (s *Server) reply(conn net.Conn, resp Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Errorf("ipc: failed to marshal response envelope: %v", err)
		return
	}
	if err := writeFrame(conn, body); err != nil {
		logger.Warnf("ipc: failed to write response: %v", err)
	}
}

func errorResponse(msg string) Response {
	return Response{Success: false, Error: msg}
}
