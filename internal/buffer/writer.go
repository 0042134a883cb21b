package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/pgwire-go/pgwire/internal/protocol"
)

// Writer builds and flushes PostgreSQL wire protocol messages.
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [5]byte
	err    error
}

// NewWriter constructs a new Writer wrapping the given io.Writer.
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{logger: logger, Writer: writer}
}

// Start resets the frame and writes the message tag plus a placeholder for
// the length field, to be patched in by End.
func (w *Writer) Start(t protocol.ServerMessage) {
	w.Reset()
	w.putbuf[0] = byte(t)
	w.frame.Write(w.putbuf[:5])
}

// AddByte appends a single byte to the frame.
func (w *Writer) AddByte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16 to the frame.
func (w *Writer) AddInt16(i int16) {
	if w.err != nil {
		return
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(i))
	_, w.err = w.frame.Write(buf[:])
}

// AddInt32 appends a big-endian int32 to the frame.
func (w *Writer) AddInt32(i int32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(i))
	_, w.err = w.frame.Write(buf[:])
}

// AddBytes appends raw bytes to the frame.
func (w *Writer) AddBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.Write(b)
}

// AddString appends a string's bytes to the frame without a terminator.
func (w *Writer) AddString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.WriteString(s)
}

// AddNullTerminatedString appends a string followed by a NUL byte.
func (w *Writer) AddNullTerminatedString(s string) {
	w.AddString(s)
	w.AddByte(0)
}

// Error returns the first error encountered while building the frame, if any.
func (w *Writer) Error() error {
	return w.err
}

// Reset discards the current frame and any recorded error.
func (w *Writer) Reset() {
	w.frame.Reset()
	w.err = nil
}

// End patches in the message length and flushes the frame to the
// underlying writer, then resets the frame for the next message.
func (w *Writer) End() error {
	defer w.Reset()
	if w.err != nil {
		return w.err
	}

	raw := w.frame.Bytes()
	length := uint32(len(raw) - 1) // length field covers everything but the tag byte
	binary.BigEndian.PutUint32(raw[1:5], length)

	_, err := w.Write(raw)
	if w.logger != nil {
		w.logger.Debug("-> writing message", slog.String("type", string(rune(raw[0]))))
	}
	return err
}

// EncodeBoolean renders a Go bool in the "on"/"off" form PostgreSQL uses for
// boolean GUC-style parameter values.
func EncodeBoolean(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
