package pgwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/pgwire-go/pgwire/codes"
	pgerror "github.com/pgwire-go/pgwire/errors"
	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
	"github.com/lib/pq/oid"
)

// removePortalOnExecute controls whether Execute removes the named portal
// from the session's portal table before returning, matching the documented
// execute-removes-portal behavior rather than PostgreSQL's own semantics
// (which keep a portal alive across repeated Execute calls until an explicit
// Close or the end of the surrounding transaction). Flip this single
// constant to change the behavior; nothing else in the codec depends on it.
const removePortalOnExecute = true

// portal is a session's bookkeeping for an open cursor bound to a prepared
// statement. columns is nil until the portal has been explicitly described.
type portal struct {
	handlerData any
	formats     []FormatCode
	columns     Columns
}

// session drives a single connection's state machine: handshake, then the
// extended-query request loop, until Terminate or an I/O failure.
type session struct {
	server  *Server
	conn    net.Conn
	reader  *buffer.Reader
	writer  *buffer.Writer
	logger  *slog.Logger
	portals map[string]*portal
}

func newSession(server *Server, conn net.Conn) *session {
	logger := server.logger
	return &session{
		server:  server,
		conn:    conn,
		reader:  buffer.NewReader(logger, conn, server.bufferedMsgSize),
		writer:  buffer.NewWriter(logger, conn),
		logger:  logger,
		portals: make(map[string]*portal),
	}
}

// run performs the handshake and then drives the request loop until the
// connection is terminated or an unrecoverable error occurs.
func (s *session) run(ctx context.Context) error {
	username, err := s.handshake(ctx)
	if err != nil {
		if errors.Is(err, ErrProtocolViolation) {
			if werr := writeErrorResponse(s.writer, err); werr != nil {
				return werr
			}
		}
		return err
	}

	if err := s.authenticate(ctx, username); err != nil {
		if werr := writeErrorResponse(s.writer, err); werr != nil {
			return werr
		}
		return err
	}

	if err := s.writeBackendParameters(ctx); err != nil {
		return err
	}

	if s.server.onSession != nil {
		ctx, err = s.server.onSession(ctx)
		if err != nil {
			return err
		}
	}

	if s.server.onTerminate != nil {
		defer func() {
			if terr := s.server.onTerminate(ctx); terr != nil {
				s.logger.Error("failed to run terminate hook", "err", terr)
			}
		}()
	}

	if err := writeReadyForQuery(s.writer); err != nil {
		return err
	}

	return s.requestLoop(ctx)
}

// handshake reads the StartupMessage and returns the advertised username. It
// does not itself authenticate the connection.
func (s *session) handshake(ctx context.Context) (string, error) {
	if _, err := s.reader.ReadUntypedMsg(); err != nil {
		return "", err
	}

	version, err := s.reader.GetUint32()
	if err != nil {
		return "", err
	}

	switch protocol.Version(version) {
	case protocol.VersionSSLRequest, protocol.VersionCancel:
		return "", fmt.Errorf("%w: unsupported startup version %d", ErrProtocolViolation, version)
	}

	params := make(map[string]string)
	for {
		key, err := s.reader.GetString()
		if err != nil {
			return "", err
		}

		if key == "" {
			break
		}

		value, err := s.reader.GetString()
		if err != nil {
			return "", err
		}

		params[key] = value
		s.logger.Debug("startup parameter", slog.String("key", key), slog.String("value", value))
	}

	return params["user"], nil
}

// writeBackendParameters emits the ParameterStatus bundle and BackendKeyData
// after authentication succeeds.
func (s *session) writeBackendParameters(ctx context.Context) error {
	defaults := s.server.handler.DefaultParameters(ctx)

	for _, name := range DefaultParameterNames {
		value := defaults[name]
		if name == "server_version" && value == "" {
			value = s.server.version
		}

		s.writer.Start(protocol.ServerParameterStatus)
		s.writer.AddNullTerminatedString(name)
		s.writer.AddNullTerminatedString(value)
		if err := s.writer.End(); err != nil {
			return err
		}
	}

	s.writer.Start(protocol.ServerBackendKeyData)
	s.writer.AddInt32(0)
	s.writer.AddInt32(0)
	return s.writer.End()
}

// requestLoop reads and dispatches client messages until Terminate, EOF, or
// an unrecoverable error.
func (s *session) requestLoop(ctx context.Context) error {
	for {
		tag, length, err := s.reader.ReadTypedMsg()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		s.logger.Debug("<- incoming message", slog.String("type", tag.String()), slog.Int("length", length))

		if err := s.dispatch(ctx, tag); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			if errors.Is(err, ErrProtocolViolation) {
				if werr := writeErrorResponse(s.writer, err); werr != nil {
					return werr
				}
			}

			return err
		}
	}
}

func (s *session) dispatch(ctx context.Context, tag protocol.ClientMessage) error {
	switch tag {
	case protocol.ClientQuery:
		return s.handleQuery(ctx)
	case protocol.ClientParse:
		return s.handleParse(ctx)
	case protocol.ClientBind:
		return s.handleBind(ctx)
	case protocol.ClientDescribe:
		return s.handleDescribe(ctx)
	case protocol.ClientExecute:
		return s.handleExecute(ctx)
	case protocol.ClientSync:
		return writeReadyForQuery(s.writer)
	case protocol.ClientTerminate:
		return io.EOF
	default:
		return fmt.Errorf("%w: unexpected message type %q", ErrProtocolViolation, tag)
	}
}

// handleQuery consumes a simple-query message. A full simple-query execution
// path is out of scope; the session reads and discards the SQL text, per the
// documented simple-query non-goal, and answers with an ErrorResponse stating
// that the simple query protocol is not implemented.
func (s *session) handleQuery(ctx context.Context) error {
	if _, err := s.reader.GetString(); err != nil {
		return err
	}

	return writeErrorResponse(s.writer, pgerror.WithCode(
		errors.New("the simple query protocol is not implemented"),
		codes.Syntax,
	))
}

func (s *session) handleParse(ctx context.Context) error {
	name, err := s.reader.GetString()
	if err != nil {
		return err
	}

	sql, err := s.reader.GetString()
	if err != nil {
		return err
	}

	n, err := s.reader.GetUint16()
	if err != nil {
		return err
	}

	paramTypes := make([]oid.Oid, n)
	for i := range paramTypes {
		t, err := s.reader.GetUint32()
		if err != nil {
			return err
		}
		paramTypes[i] = oid.Oid(t)
	}

	if err := s.server.handler.Prepare(ctx, name, sql, paramTypes); err != nil {
		return writeErrorResponse(s.writer, err)
	}

	s.writer.Start(protocol.ServerParseComplete)
	return s.writer.End()
}

func (s *session) handleBind(ctx context.Context) error {
	portalName, err := s.reader.GetString()
	if err != nil {
		return err
	}

	stmtName, err := s.reader.GetString()
	if err != nil {
		return err
	}

	paramFormats, err := s.readFormatCodes()
	if err != nil {
		return err
	}

	values, err := s.readParameterValues(paramFormats)
	if err != nil {
		return err
	}

	resultFormats, err := s.readFormatCodes()
	if err != nil {
		return err
	}

	handlerData, err := s.server.handler.Bind(ctx, stmtName, values)
	if err != nil {
		return writeErrorResponse(s.writer, err)
	}

	s.portals[portalName] = &portal{handlerData: handlerData, formats: resultFormats}

	s.writer.Start(protocol.ServerBindComplete)
	return s.writer.End()
}

// readFormatCodes reads a length-prefixed list of format codes, as used for
// both Bind's parameter-format list and its result-format list.
func (s *session) readFormatCodes() ([]FormatCode, error) {
	n, err := s.reader.GetUint16()
	if err != nil {
		return nil, err
	}

	codes := make([]FormatCode, n)
	for i := range codes {
		c, err := s.reader.GetUint16()
		if err != nil {
			return nil, err
		}
		codes[i] = FormatCode(c)
	}

	return codes, nil
}

// readParameterValues reads Bind's parameter value list and resolves each
// value's effective format per the parameter-format negotiation rule.
func (s *session) readParameterValues(paramFormats []FormatCode) ([]ParameterValue, error) {
	n, err := s.reader.GetUint16()
	if err != nil {
		return nil, err
	}

	formats, err := negotiateFormats(int(n), paramFormats)
	if err != nil {
		return nil, err
	}

	values := make([]ParameterValue, n)
	for i := range values {
		length, err := s.reader.GetInt32()
		if err != nil {
			return nil, err
		}

		if length < 0 {
			values[i] = NullParameter
			continue
		}

		raw, err := s.reader.GetBytes(int(length))
		if err != nil {
			return nil, err
		}

		value := make([]byte, len(raw))
		copy(value, raw)

		if formats[i] == BinaryFormat {
			values[i] = NewBinaryParameter(value)
		} else {
			values[i] = NewTextParameter(value)
		}
	}

	return values, nil
}

func (s *session) handleDescribe(ctx context.Context) error {
	kind, err := s.reader.GetByte()
	if err != nil {
		return err
	}

	name, err := s.reader.GetString()
	if err != nil {
		return err
	}

	switch protocol.DescribeTarget(kind) {
	case protocol.DescribeStatement:
		return s.describeStatement(ctx, name)
	case protocol.DescribePortal:
		return s.describePortal(ctx, name)
	default:
		return fmt.Errorf("%w: unknown describe target %q", ErrProtocolViolation, kind)
	}
}

func (s *session) describeStatement(ctx context.Context, name string) error {
	paramTypes, columns, err := s.server.handler.DescribeStatement(ctx, name)
	if err != nil {
		return writeErrorResponse(s.writer, err)
	}

	s.writer.Start(protocol.ServerParameterDescription)
	s.writer.AddInt16(int16(len(paramTypes)))
	for _, t := range paramTypes {
		s.writer.AddInt32(int32(t))
	}
	if err := s.writer.End(); err != nil {
		return err
	}

	if columns == nil {
		s.writer.Start(protocol.ServerNoData)
		return s.writer.End()
	}

	formats, err := negotiateFormats(len(columns), nil)
	if err != nil {
		return err
	}

	return writeRowDescription(s.writer, columns, formats)
}

func (s *session) describePortal(ctx context.Context, name string) error {
	p, ok := s.portals[name]
	if !ok {
		return writeErrorResponse(s.writer, errUnknownPortal(name))
	}

	columns, err := s.server.handler.Describe(ctx, p.handlerData)
	if err != nil {
		return writeErrorResponse(s.writer, err)
	}

	if columns == nil {
		s.writer.Start(protocol.ServerNoData)
		return s.writer.End()
	}

	p.columns = columns

	formats, err := negotiateFormats(len(columns), p.formats)
	if err != nil {
		return err
	}

	return writeRowDescription(s.writer, columns, formats)
}

func (s *session) handleExecute(ctx context.Context) error {
	name, err := s.reader.GetString()
	if err != nil {
		return err
	}

	maxRows, err := s.reader.GetInt32()
	if err != nil {
		return err
	}

	p, ok := s.portals[name]
	if !ok {
		return writeErrorResponse(s.writer, errUnknownPortal(name))
	}

	if removePortalOnExecute {
		delete(s.portals, name)
	}

	writer := newResultWriter(s.writer, p.formats)
	if err := s.server.handler.Execute(ctx, p.handlerData, maxRows, p.columns, writer); err != nil {
		return writeErrorResponse(s.writer, err)
	}

	return nil
}

// errUnknownPortal constructs the recoverable "Portal not found" error
// emitted when Execute or Describe(Portal) references an unbound name.
func errUnknownPortal(name string) error {
	return pgerror.WithCode(errors.New("Portal not found"), codes.InvalidCursorName)
}
