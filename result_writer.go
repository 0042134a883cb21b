package pgwire

import (
	"errors"
	"fmt"

	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
)

// ErrResultWriterClosed is returned by any ResultWriter or RowWriter method
// called after the writer it belongs to has already finished a response.
var ErrResultWriterClosed = errors.New("result writer has already been closed")

// ResultWriter is handed to Handler.Execute. It negotiates result formats
// and, once Handler knows its result shape, is exchanged for a RowWriter via
// StartWriting. It is only valid for the duration of a single Execute call.
type ResultWriter struct {
	writer  *buffer.Writer
	formats []FormatCode // the portal's result format codes, as sent at Bind
	done    bool
}

func newResultWriter(w *buffer.Writer, formats []FormatCode) *ResultWriter {
	return &ResultWriter{writer: w, formats: formats}
}

// Empty announces that the statement produces no rows at all and ends the
// response. It is mutually exclusive with StartWriting/WriteRowDescription.
func (rw *ResultWriter) Empty() error {
	if rw.done {
		return ErrResultWriterClosed
	}

	rw.done = true
	rw.writer.Start(protocol.ServerEmptyQuery)
	return rw.writer.End()
}

// WriteRowDescription emits RowDescription for columns using the portal's
// negotiated result formats. Call this only when the Session did not already
// describe the portal (the columns argument Execute received was nil);
// describing twice would violate the wire protocol.
func (rw *ResultWriter) WriteRowDescription(columns Columns) error {
	if rw.done {
		return ErrResultWriterClosed
	}

	formats, err := negotiateFormats(len(columns), rw.formats)
	if err != nil {
		return err
	}

	return writeRowDescription(rw.writer, columns, formats)
}

// StartWriting computes per-column format codes for columns and returns a
// RowWriter ready to stream DataRow messages. It does not itself emit any
// message; call WriteRowDescription first if the portal was not already
// described.
func (rw *ResultWriter) StartWriting(columns Columns) (*RowWriter, error) {
	if rw.done {
		return nil, ErrResultWriterClosed
	}

	formats, err := negotiateFormats(len(columns), rw.formats)
	if err != nil {
		return nil, err
	}

	rw.done = true
	return &RowWriter{writer: rw.writer, columns: columns, formats: formats}, nil
}

// RowWriter streams DataRow messages for a single Execute response and
// terminates it with CommandComplete.
type RowWriter struct {
	writer   *buffer.Writer
	columns  Columns
	formats  []FormatCode
	rowCount int64
	finished bool
}

// WriteRow encodes and sends one row. len(values) must equal the number of
// described columns. A nil entry encodes as SQL NULL.
func (rw *RowWriter) WriteRow(values []any) error {
	if rw.finished {
		return ErrResultWriterClosed
	}

	if len(values) != len(rw.columns) {
		return fmt.Errorf("expected %d column values, got %d", len(rw.columns), len(values))
	}

	rw.writer.Start(protocol.ServerDataRow)
	rw.writer.AddInt16(int16(len(values)))

	for i, value := range values {
		buf, err := encodeValue(uint32(rw.columns[i].Type), rw.formats[i], value)
		if err != nil {
			return err
		}

		if buf == nil {
			rw.writer.AddInt32(-1)
			continue
		}

		rw.writer.AddInt32(int32(len(buf)))
		rw.writer.AddBytes(buf)
	}

	if err := rw.writer.End(); err != nil {
		return err
	}

	rw.rowCount++
	return nil
}

// Finish emits the terminal CommandComplete message. It must be called
// exactly once, after the last WriteRow call.
func (rw *RowWriter) Finish() error {
	if rw.finished {
		return ErrResultWriterClosed
	}

	rw.finished = true
	rw.writer.Start(protocol.ServerCommandComplete)
	rw.writer.AddNullTerminatedString(fmt.Sprintf("SELECT %d", rw.rowCount))
	return rw.writer.End()
}
