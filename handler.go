package pgwire

import (
	"context"

	"github.com/lib/pq/oid"
)

// Column describes a single result column: its display name and its
// PostgreSQL type, identified by the OID catalogue of the companion type
// library (github.com/lib/pq/oid).
type Column struct {
	Name string
	Type oid.Oid
}

// Columns is an ordered collection of result columns.
type Columns []Column

// Parameters is the bundle of ParameterStatus values a Handler advertises
// during the startup handshake. Case is significant; keys match PostgreSQL's
// own ParameterStatus names exactly (e.g. "DateStyle", not "datestyle").
type Parameters map[string]string

// DefaultParameterNames lists every key this implementation sends a
// ParameterStatus message for during the handshake, in the order they are
// written. A Handler's DefaultParameters is expected to supply all of them;
// any name it omits is sent with an empty value, except server_version, which
// falls back to the value set with the Version option.
var DefaultParameterNames = []string{
	"server_version",
	"server_encoding",
	"client_encoding",
	"application_name",
	"default_transaction_read_only",
	"in_hot_standby",
	"is_superuser",
	"DateStyle",
	"IntervalStyle",
	"TimeZone",
	"integer_datetimes",
	"standard_conforming_strings",
}

// Handler is the backend contract a Session calls into. It owns the meaning
// of SQL: parsing, binding parameters, describing result shapes, and
// producing rows. The Session calls Handler methods synchronously and never
// concurrently for a given connection; a Handler instance is free to keep
// per-connection state as long as each connection gets its own Handler (or
// the Handler otherwise isolates state per ctx).
type Handler interface {
	// Prepare parses and registers sql under name (the empty string names
	// the unnamed statement). paramTypes lists the client's declared
	// parameter OIDs, which may be shorter than the statement's actual
	// parameter count, or contain zero entries for "unspecified".
	Prepare(ctx context.Context, name string, sql string, paramTypes []oid.Oid) error

	// Bind binds parameterValues against the prepared statement named by
	// stmtName and returns Handler-opaque portal state. The returned value
	// is later handed back verbatim to Describe and Execute.
	Bind(ctx context.Context, stmtName string, parameterValues []ParameterValue) (portalData any, err error)

	// Describe reports the result columns a bound portal will produce, or
	// nil if executing the portal will not produce rows (the Session
	// answers NoData in that case). Describe is only called when the
	// client explicitly issues a Describe(Portal) message.
	Describe(ctx context.Context, portalData any) (Columns, error)

	// DescribeStatement reports the parameter OIDs and (optional) output
	// columns of the prepared statement named by name, answering a
	// Describe(Statement) message. A nil Columns return means the
	// statement produces no rows.
	DescribeStatement(ctx context.Context, name string) (paramTypes []oid.Oid, columns Columns, err error)

	// Execute runs the portal identified by portalData, producing at most
	// maxRows rows (0 means unlimited) through writer. columns is the
	// result shape established by a prior Describe, or nil if the portal
	// was never described; Execute is responsible for emitting
	// RowDescription itself via writer.WriteRowDescription in that case. Execute
	// takes ownership of writer for the duration of the call and must call
	// either writer.Empty or a RowWriter's Finish before returning.
	Execute(ctx context.Context, portalData any, maxRows int32, columns Columns, writer *ResultWriter) error

	// DefaultParameters returns the ParameterStatus bundle advertised
	// during the handshake.
	DefaultParameters(ctx context.Context) Parameters
}
