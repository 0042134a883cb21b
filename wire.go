package pgwire

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// ListenAndServe constructs a Server around handler and serves connections
// on address until an unrecoverable listener error occurs. It is a
// convenience wrapper for the common case of a single, statically
// configured Handler.
func ListenAndServe(address string, handler Handler, options ...ServerOption) error {
	srv, err := NewServer(handler, options...)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(address)
}

// NewServer constructs a Server around handler, applying options in order.
func NewServer(handler Handler, options ...ServerOption) (*Server, error) {
	srv := &Server{
		handler: handler,
		logger:  slog.Default(),
		closer:  make(chan struct{}),
	}

	for _, option := range options {
		if err := option(srv); err != nil {
			return nil, err
		}
	}

	return srv, nil
}

// Server accepts PostgreSQL wire-protocol connections and drives one session
// per connection against a single Handler. A Server is safe to share across
// goroutines; each accepted connection gets its own session, synchronous and
// unshared.
type Server struct {
	handler           Handler
	logger            *slog.Logger
	bufferedMsgSize   int
	version           string
	passwordValidator PasswordValidator
	onSession         func(ctx context.Context) (context.Context, error)
	onTerminate       func(ctx context.Context) error

	closing atomic.Bool
	closer  chan struct{}
	wg      sync.WaitGroup
}

// ListenAndServe opens a TCP listener on address and serves connections on
// it until the Server is closed.
func (srv *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	return srv.Serve(listener)
}

// Serve accepts and serves connections from listener until it is closed or
// the Server itself is closed. The listener is closed when the Server is
// closed; if Accept fails with any other error, Serve returns that error and
// leaves the listener open.
func (srv *Server) Serve(listener net.Listener) error {
	defer srv.logger.Info("closing server")

	srv.logger.Info("serving incoming connections", slog.String("addr", listener.Addr().String()))
	srv.wg.Add(1)

	go func() {
		defer srv.wg.Done()
		<-srv.closer

		if err := listener.Close(); err != nil {
			srv.logger.Error("failed to close listener", "err", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		go func() {
			if err := srv.serveConn(context.Background(), conn); err != nil {
				srv.logger.Error("connection ended with an error", "err", err)
			}
		}()
	}
}

// serveConn runs a single connection's session to completion and closes the
// underlying connection once it returns.
func (srv *Server) serveConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	srv.logger.Debug("accepted connection", slog.String("remote", conn.RemoteAddr().String()))

	sess := newSession(srv, conn)
	return sess.run(ctx)
}

// Close stops accepting new connections by closing the listener and waits
// until the listener has been closed. It does not wait for Serve itself to
// return, and does not forcibly close sessions already in progress.
func (srv *Server) Close() error {
	if srv.closing.Swap(true) {
		return nil
	}

	close(srv.closer)
	srv.wg.Wait()
	return nil
}
