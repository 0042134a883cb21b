// Package mock provides small helpers for constructing wire messages in
// tests without going through a real net.Conn.
package mock

import (
	"bytes"
	"io"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
)

// NewWriter constructs a buffer.Writer over writer, routing log output
// through the test's own logger via slogt.
func NewWriter(t *testing.T, writer io.Writer) *buffer.Writer {
	t.Helper()
	return buffer.NewWriter(slogt.New(t), writer)
}

// NewReader constructs a buffer.Reader over reader using the default buffer
// size, routing log output through the test's own logger via slogt.
func NewReader(t *testing.T, reader io.Reader) *buffer.Reader {
	t.Helper()
	return buffer.NewReader(slogt.New(t), reader, buffer.DefaultBufferSize)
}

// ParseMessage encodes a Parse message and returns a Reader positioned right
// after its type tag and length, ready for the body to be consumed.
func ParseMessage(t *testing.T, name, sql string, paramTypes []uint32) *buffer.Reader {
	t.Helper()

	buf := &bytes.Buffer{}
	w := NewWriter(t, buf)
	w.Start(protocol.ServerMessage(protocol.ClientParse))
	w.AddNullTerminatedString(name)
	w.AddNullTerminatedString(sql)
	w.AddInt16(int16(len(paramTypes)))
	for _, t := range paramTypes {
		w.AddInt32(int32(t))
	}
	if err := w.End(); err != nil {
		t.Fatalf("failed to write parse message: %v", err)
	}

	return readBody(t, buf)
}

// BindMessage encodes a Bind message with no parameters or format codes
// beyond what the caller supplies as raw values, returning a positioned
// Reader.
func BindMessage(t *testing.T, portal, statement string, paramFormats []int16, values [][]byte, resultFormats []int16) *buffer.Reader {
	t.Helper()

	buf := &bytes.Buffer{}
	w := NewWriter(t, buf)
	w.Start(protocol.ServerMessage(protocol.ClientBind))
	w.AddNullTerminatedString(portal)
	w.AddNullTerminatedString(statement)

	w.AddInt16(int16(len(paramFormats)))
	for _, f := range paramFormats {
		w.AddInt16(f)
	}

	w.AddInt16(int16(len(values)))
	for _, v := range values {
		if v == nil {
			w.AddInt32(-1)
			continue
		}
		w.AddInt32(int32(len(v)))
		w.AddBytes(v)
	}

	w.AddInt16(int16(len(resultFormats)))
	for _, f := range resultFormats {
		w.AddInt16(f)
	}

	if err := w.End(); err != nil {
		t.Fatalf("failed to write bind message: %v", err)
	}

	return readBody(t, buf)
}

// DescribeMessage encodes a Describe message, returning a positioned Reader.
func DescribeMessage(t *testing.T, target protocol.DescribeTarget, name string) *buffer.Reader {
	t.Helper()

	buf := &bytes.Buffer{}
	w := NewWriter(t, buf)
	w.Start(protocol.ServerMessage(protocol.ClientDescribe))
	w.AddByte(byte(target))
	w.AddNullTerminatedString(name)
	if err := w.End(); err != nil {
		t.Fatalf("failed to write describe message: %v", err)
	}

	return readBody(t, buf)
}

// ExecuteMessage encodes an Execute message, returning a positioned Reader.
func ExecuteMessage(t *testing.T, portal string, maxRows int32) *buffer.Reader {
	t.Helper()

	buf := &bytes.Buffer{}
	w := NewWriter(t, buf)
	w.Start(protocol.ServerMessage(protocol.ClientExecute))
	w.AddNullTerminatedString(portal)
	w.AddInt32(maxRows)
	if err := w.End(); err != nil {
		t.Fatalf("failed to write execute message: %v", err)
	}

	return readBody(t, buf)
}

func readBody(t *testing.T, buf *bytes.Buffer) *buffer.Reader {
	t.Helper()

	r := NewReader(t, buf)
	if _, _, err := r.ReadTypedMsg(); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	return r
}
