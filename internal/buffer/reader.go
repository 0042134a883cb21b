package buffer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pgwire-go/pgwire/internal/protocol"
)

// DefaultBufferSize is used whenever a caller does not specify a buffer size.
const DefaultBufferSize = 1 << 20 // 1MiB

// ErrMessageSizeExceeded is returned whenever an incoming message declares a
// length greater than the reader's configured maximum.
var ErrMessageSizeExceeded = errors.New("message size exceeded")

// MessageSizeExceeded carries the declared size of a message that exceeded
// the reader's maximum, so the caller can discard the remaining bytes.
type MessageSizeExceeded struct {
	Size int
}

func (e *MessageSizeExceeded) Error() string {
	return fmt.Sprintf("message of size %d exceeds the maximum allowed message size", e.Size)
}

func (e *MessageSizeExceeded) Unwrap() error { return ErrMessageSizeExceeded }

// Reader reads PostgreSQL wire protocol messages from an underlying stream.
type Reader struct {
	logger         *slog.Logger
	buffer         *bufio.Reader
	Msg            []byte
	MaxMessageSize int
	header         [4]byte
}

// NewReader constructs a new Reader. A non-positive bufferSize falls back to
// DefaultBufferSize.
func NewReader(logger *slog.Logger, reader io.Reader, bufferSize int) *Reader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Reader{
		logger:         logger,
		buffer:         bufio.NewReaderSize(reader, bufferSize),
		MaxMessageSize: bufferSize,
	}
}

func (r *Reader) reset(size int) {
	if cap(r.Msg) >= size {
		r.Msg = r.Msg[:size]
		return
	}

	alloc := size
	if alloc < 4096 {
		alloc = 4096
	}
	r.Msg = make([]byte, size, alloc)
}

// ReadTypeByte reads the single-byte message tag that prefixes every typed
// message except Startup.
func (r *Reader) ReadTypeByte() (protocol.ClientMessage, error) {
	b, err := r.buffer.ReadByte()
	if err != nil {
		return 0, err
	}

	return protocol.ClientMessage(b), nil
}

// ReadTypedMsg reads a type tag followed by a length-prefixed body and
// returns the tag and the number of bytes read after the tag, counting the
// 4-byte length field itself (4 for a message with an empty body).
func (r *Reader) ReadTypedMsg() (protocol.ClientMessage, int, error) {
	t, err := r.ReadTypeByte()
	if err != nil {
		return t, 0, err
	}

	n, err := r.ReadUntypedMsg()
	return t, n, err
}

// ReadUntypedMsg reads a 4-byte big-endian length (inclusive of itself)
// followed by that many bytes minus the 4 already consumed. It is used
// directly only during the startup handshake; ReadTypedMsg is used
// everywhere else.
func (r *Reader) ReadUntypedMsg() (int, error) {
	size, err := r.readMsgSize()
	if err != nil {
		return 0, err
	}

	if size < 0 || size > r.MaxMessageSize {
		return size, &MessageSizeExceeded{Size: size}
	}

	r.reset(size)
	n, err := io.ReadFull(r.buffer, r.Msg)
	return len(r.header) + n, err
}

func (r *Reader) readMsgSize() (int, error) {
	_, err := io.ReadFull(r.buffer, r.header[:])
	if err != nil {
		return 0, err
	}

	size := int(binary.BigEndian.Uint32(r.header[:]))
	return size - 4, nil
}

// Slurp discards size bytes from the underlying stream, used to recover
// after a message-size-exceeded error.
func (r *Reader) Slurp(size int) error {
	remaining := size
	for remaining > 0 {
		reading := remaining
		if reading > r.MaxMessageSize {
			reading = r.MaxMessageSize
		}

		r.reset(reading)
		n, err := io.ReadFull(r.buffer, r.Msg)
		if err != nil {
			return err
		}

		remaining -= n
	}

	return nil
}

// GetString reads a NUL-terminated string from the front of Msg.
func (r *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(r.Msg, 0)
	if pos == -1 {
		return "", errors.New("expected null terminated string")
	}

	s := string(r.Msg[:pos])
	r.Msg = r.Msg[pos+1:]
	return s, nil
}

// GetBytes returns the next n bytes from Msg. A negative n (the wire's NULL
// sentinel for Bind parameters) returns a nil slice and no error; the caller
// is responsible for distinguishing NULL from a zero-length value.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, nil
	}

	if len(r.Msg) < n {
		return nil, fmt.Errorf("insufficient data: need %d bytes, have %d", n, len(r.Msg))
	}

	v := r.Msg[:n]
	r.Msg = r.Msg[n:]
	return v, nil
}

// GetByte returns the next single byte from Msg.
func (r *Reader) GetByte() (byte, error) {
	if len(r.Msg) < 1 {
		return 0, errors.New("insufficient data: need 1 byte")
	}

	v := r.Msg[0]
	r.Msg = r.Msg[1:]
	return v, nil
}

// GetUint16 returns the next big-endian uint16 from Msg.
func (r *Reader) GetUint16() (uint16, error) {
	if len(r.Msg) < 2 {
		return 0, errors.New("insufficient data: need 2 bytes")
	}

	v := binary.BigEndian.Uint16(r.Msg[:2])
	r.Msg = r.Msg[2:]
	return v, nil
}

// GetUint32 returns the next big-endian uint32 from Msg.
func (r *Reader) GetUint32() (uint32, error) {
	if len(r.Msg) < 4 {
		return 0, errors.New("insufficient data: need 4 bytes")
	}

	v := binary.BigEndian.Uint32(r.Msg[:4])
	r.Msg = r.Msg[4:]
	return v, nil
}

// GetInt32 returns the next big-endian int32 from Msg.
func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}
