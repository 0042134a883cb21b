package pgwire

import (
	"context"
	"log/slog"
)

// ServerOption configures a Server at construction time.
type ServerOption func(*Server) error

// Logger overrides the default slog.Logger used for all connection and
// protocol logging.
func Logger(logger *slog.Logger) ServerOption {
	return func(srv *Server) error {
		srv.logger = logger
		return nil
	}
}

// BufferedMsgSize overrides the maximum message size the Reader will accept,
// in bytes. The default is buffer.DefaultBufferSize.
func BufferedMsgSize(size int) ServerOption {
	return func(srv *Server) error {
		srv.bufferedMsgSize = size
		return nil
	}
}

// Version sets the server_version value reported during the handshake when
// the Handler's DefaultParameters does not itself set one.
func Version(version string) ServerOption {
	return func(srv *Server) error {
		srv.version = version
		return nil
	}
}

// WithClearTextPasswordValidator installs a callback invoked with the
// client-supplied username and password after a PasswordMessage is read.
// Without one configured, every connection is authenticated unconditionally.
func WithClearTextPasswordValidator(validate PasswordValidator) ServerOption {
	return func(srv *Server) error {
		srv.passwordValidator = validate
		return nil
	}
}

// OnSession registers a hook run once per connection, after authentication
// and before the request loop begins. It may derive a new context (for
// example, attaching a request-scoped value) to be used for the remainder of
// the connection's lifetime.
func OnSession(fn func(ctx context.Context) (context.Context, error)) ServerOption {
	return func(srv *Server) error {
		srv.onSession = fn
		return nil
	}
}

// OnTerminate registers a hook run once per connection as it closes, whether
// the request loop ended cleanly or due to an error. It only runs for
// connections that got past the handshake, authentication, the
// ParameterStatus bundle and the OnSession hook; a connection that fails
// before then does not run it.
func OnTerminate(fn func(ctx context.Context) error) ServerOption {
	return func(srv *Server) error {
		srv.onTerminate = fn
		return nil
	}
}
