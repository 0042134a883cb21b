package pgwire

import (
	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
)

// writeRowDescription emits a RowDescription message describing columns
// using the given per-column result format codes, one per column.
// https://www.postgresql.org/docs/current/protocol-message-formats.html#PROTOCOL-MESSAGE-FORMATS-ROWDESCRIPTION
func writeRowDescription(w *buffer.Writer, columns Columns, formats []FormatCode) error {
	w.Start(protocol.ServerRowDescription)
	w.AddInt16(int16(len(columns)))

	for i, column := range columns {
		w.AddNullTerminatedString(column.Name)
		w.AddInt32(0) // table OID: unknown to this layer
		w.AddInt16(0) // column attribute number: unknown to this layer
		w.AddInt32(int32(column.Type))
		w.AddInt16(0) // type size: left to the client's own catalogue
		w.AddInt32(0) // type modifier: undefined
		w.AddInt16(int16(formats[i]))
	}

	return w.End()
}
