package pgwire

import (
	"errors"
	"strconv"

	psqlerr "github.com/pgwire-go/pgwire/errors"
	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
)

// ErrProtocolViolation is wrapped by errors returned when a client message
// does not conform to the wire protocol (an unexpected format-code count, an
// unrecognized message type in the current session state, and similar).
var ErrProtocolViolation = errors.New("protocol violation")

// errField identifies a single field within an ErrorResponse message.
// https://www.postgresql.org/docs/current/protocol-error-fields.html
type errField byte

const (
	errFieldSeverity       errField = 'S'
	errFieldMsgPrimary     errField = 'M'
	errFieldSQLState       errField = 'C'
	errFieldDetail         errField = 'D'
	errFieldHint           errField = 'H'
	errFieldSrcFile        errField = 'F'
	errFieldSrcLine        errField = 'L'
	errFieldSrcFunction    errField = 'R'
	errFieldConstraintName errField = 'n'
)

// writeErrorResponse writes an ErrorResponse message for err. It never
// follows it with ReadyForQuery; Sync is the only message that emits one
// mid-session, and a missing-portal or handler-originated error leaves the
// session in place to continue processing further extended-query messages.
// https://www.postgresql.org/docs/current/protocol-error-fields.html
func writeErrorResponse(w *buffer.Writer, err error) error {
	desc := psqlerr.Flatten(err)

	w.Start(protocol.ServerErrorResponse)

	w.AddByte(byte(errFieldSeverity))
	w.AddNullTerminatedString(string(desc.Severity))
	w.AddByte(byte(errFieldSQLState))
	w.AddNullTerminatedString(string(desc.Code))
	w.AddByte(byte(errFieldMsgPrimary))
	w.AddNullTerminatedString(desc.Message)

	if desc.Hint != "" {
		w.AddByte(byte(errFieldHint))
		w.AddNullTerminatedString(desc.Hint)
	}

	if desc.Detail != "" {
		w.AddByte(byte(errFieldDetail))
		w.AddNullTerminatedString(desc.Detail)
	}

	if desc.ConstraintName != "" {
		w.AddByte(byte(errFieldConstraintName))
		w.AddNullTerminatedString(desc.ConstraintName)
	}

	if desc.Source != nil {
		w.AddByte(byte(errFieldSrcFile))
		w.AddNullTerminatedString(desc.Source.File)
		w.AddByte(byte(errFieldSrcLine))
		w.AddNullTerminatedString(strconv.Itoa(int(desc.Source.Line)))
		w.AddByte(byte(errFieldSrcFunction))
		w.AddNullTerminatedString(desc.Source.Function)
	}

	w.AddByte(0)

	return w.End()
}

// writeReadyForQuery emits ReadyForQuery, indicating the server is idle and
// ready to accept the next command cycle.
func writeReadyForQuery(w *buffer.Writer) error {
	w.Start(protocol.ServerReady)
	w.AddByte(byte(protocol.StatusIdle))
	return w.End()
}
