// Package protocol holds the wire-level message tags and startup version
// constants of the PostgreSQL frontend/backend protocol, version 3.
// https://www.postgresql.org/docs/current/protocol-message-formats.html
package protocol

// ClientMessage identifies the type of a typed message sent by a client.
type ClientMessage byte

// ServerMessage identifies the type of a typed message sent by the server.
type ServerMessage byte

// DescribeTarget identifies what a Describe message refers to.
type DescribeTarget byte

const (
	ClientBind      ClientMessage = 'B'
	ClientDescribe  ClientMessage = 'D'
	ClientExecute   ClientMessage = 'E'
	ClientParse     ClientMessage = 'P'
	ClientPassword  ClientMessage = 'p'
	ClientQuery     ClientMessage = 'Q'
	ClientSync      ClientMessage = 'S'
	ClientTerminate ClientMessage = 'X'

	ServerAuth                 ServerMessage = 'R'
	ServerBackendKeyData       ServerMessage = 'K'
	ServerBindComplete         ServerMessage = '2'
	ServerCommandComplete      ServerMessage = 'C'
	ServerDataRow              ServerMessage = 'D'
	ServerEmptyQuery           ServerMessage = 'I'
	ServerErrorResponse        ServerMessage = 'E'
	ServerNoData               ServerMessage = 'n'
	ServerParameterDescription ServerMessage = 't'
	ServerParameterStatus      ServerMessage = 'S'
	ServerParseComplete        ServerMessage = '1'
	ServerReady                ServerMessage = 'Z'
	ServerRowDescription       ServerMessage = 'T'

	DescribeStatement DescribeTarget = 'S'
	DescribePortal    DescribeTarget = 'P'
)

func (m ClientMessage) String() string {
	switch m {
	case ClientBind:
		return "Bind"
	case ClientDescribe:
		return "Describe"
	case ClientExecute:
		return "Execute"
	case ClientParse:
		return "Parse"
	case ClientPassword:
		return "Password"
	case ClientQuery:
		return "Query"
	case ClientSync:
		return "Sync"
	case ClientTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Version represents the connection version presented in the startup
// message header. Request codes share the same space as protocol versions.
// https://www.postgresql.org/docs/current/protocol-message-formats.html
type Version uint32

const (
	Version30         Version = 196608   // (3 << 16) + 0
	VersionCancel     Version = 80877102 // (1234 << 16) + 5678
	VersionSSLRequest Version = 80877103 // (1234 << 16) + 5679
)

// ServerStatus is the single byte reported in ReadyForQuery. This
// implementation never tracks transactions, so it only ever reports Idle.
type ServerStatus byte

const (
	StatusIdle ServerStatus = 'I'
)
